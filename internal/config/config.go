package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for hamsterguard.
type Config struct {
	General    GeneralConfig    `json:"general"`
	Discord    DiscordConfig    `json:"discord"`
	OpenRouter OpenRouterConfig `json:"openrouter"`
	Ruleset    RulesetConfig    `json:"ruleset"`
	Summarizer SummarizerConfig `json:"summarizer"`
	Metrics    MetricsConfig    `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"` // debug | info | warn | error
}

type DiscordConfig struct {
	Token   string `json:"token"`
	GuildID string `json:"guildId,omitempty"` // optional: restrict to one guild
}

type OpenRouterConfig struct {
	APIKey         string `json:"apiKey"`
	APIBase        string `json:"apiBase,omitempty"`
	VisionModel    string `json:"visionModel,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

// RulesetConfig points at an optional YAML detection ruleset; when Path is
// empty, the compiled-in defaults are used.
type RulesetConfig struct {
	Path string `json:"path,omitempty"`
}

type SummarizerConfig struct {
	Enabled      bool   `json:"enabled"`
	RoleID       string `json:"roleId,omitempty"`       // role mention that triggers a summary
	Model        string `json:"model,omitempty"`        // text model; defaults to the vision model
	HistoryLimit int    `json:"historyLimit,omitempty"` // messages of history to read
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host,omitempty"`
	Port    int    `json:"port,omitempty"`
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnvVars substitutes ${VAR} and ${VAR:-default} references in input.
// Unset variables without a default are left as-is.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// ExpandPath resolves a leading ~/ against the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigDir returns ~/.hamsterguard.
func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hamsterguard")
}

// DefaultConfigPath returns ~/.hamsterguard/config.json.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads, env-expands, merges over Defaults, and validates a config file.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Ruleset.Path = ExpandPath(cfg.Ruleset.Path)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Save writes cfg as indented JSON.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks cfg for startup-fatal problems. A missing bot token or
// vision API key fails here rather than surfacing mid-pipeline.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if strings.TrimSpace(cfg.Discord.Token) == "" || strings.Contains(cfg.Discord.Token, "${") {
		errs = append(errs, "discord.token is required (set DISCORD_TOKEN or edit the config)")
	}
	if strings.TrimSpace(cfg.OpenRouter.APIKey) == "" || strings.Contains(cfg.OpenRouter.APIKey, "${") {
		errs = append(errs, "openrouter.apiKey is required (set OPENROUTER_API_KEY or edit the config)")
	}
	if cfg.OpenRouter.TimeoutSeconds < 1 {
		errs = append(errs, "openrouter.timeoutSeconds must be >= 1")
	}

	if cfg.Summarizer.Enabled {
		if cfg.Summarizer.RoleID == "" {
			errs = append(errs, "summarizer.roleId is required when the summarizer is enabled")
		}
		if cfg.Summarizer.HistoryLimit < 1 {
			errs = append(errs, "summarizer.historyLimit must be >= 1")
		}
	}

	if cfg.Metrics.Port < 0 || cfg.Metrics.Port > 65535 {
		errs = append(errs, "metrics.port must be between 0 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
