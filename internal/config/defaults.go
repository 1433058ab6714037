package config

// Defaults returns the baseline configuration. Credentials default to env
// references so a generated config file never embeds secrets.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Discord: DiscordConfig{
			Token: "${DISCORD_TOKEN}",
		},
		OpenRouter: OpenRouterConfig{
			APIKey:         "${OPENROUTER_API_KEY}",
			APIBase:        "https://openrouter.ai/api/v1",
			VisionModel:    "openai/gpt-4o-mini",
			TimeoutSeconds: 15,
		},
		Summarizer: SummarizerConfig{
			Enabled:      false,
			HistoryLimit: 30,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9190,
		},
	}
}
