package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"hamsterguard/internal/classify"
	"hamsterguard/internal/config"
	"hamsterguard/internal/openrouter"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your hamsterguard installation",
		Long: `Verifies that hamsterguard's configuration, credentials, detection
ruleset, and the OpenRouter API are correctly set up. Reports pass/fail
for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("hamsterguard doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'hamsterguard init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates (includes credential presence)
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return nil
			}
			printPass("Config validation", "valid")
			passed++

			// 3. Detection ruleset parses
			rs, err := classify.LoadRuleset(cfg.Ruleset.Path, logger)
			if err != nil {
				printFail("Ruleset", err.Error())
				failed++
			} else {
				printPass("Ruleset", fmt.Sprintf("%d keywords, %d misspelling tokens", len(rs.Keywords), len(rs.MisspellingTokens)))
				passed++
			}

			// 4. OpenRouter reachable with this key
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			client := openrouter.New(openrouter.Config{
				APIKey:  cfg.OpenRouter.APIKey,
				APIBase: cfg.OpenRouter.APIBase,
				Client:  openrouter.SharedHTTPClient(10 * time.Second),
				Logger:  logger,
			})
			if err := client.Healthy(ctx); err != nil {
				printFail("OpenRouter API", err.Error())
				failed++
			} else {
				printPass("OpenRouter API", "reachable, key accepted")
				passed++
			}

			fmt.Printf("\n%d passed, %d failed\n", passed, failed)
			return nil
		},
	}
}

func printPass(name, detail string) {
	fmt.Printf("  ✓ %-20s %s\n", name, detail)
}

func printFail(name, detail string) {
	fmt.Printf("  ✗ %-20s %s\n", name, detail)
}
