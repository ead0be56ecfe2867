package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/keepmind9/botparams/internal/core"
	"github.com/spf13/cobra"
)

var (
	validateConfigFile string
	validateShow       bool
	validateJSON       bool
)

// ValidationResult represents the validation result
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Config   string   `json:"config"`
	Bots     []string `json:"bots,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// errInvalidConfig makes the command exit non-zero after the result is printed
var errInvalidConfig = fmt.Errorf("configuration is invalid")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate botparams configuration file",
	Long: `Validate the botparams configuration file without connecting any bot.

This command checks:
  - YAML syntax and environment variables
  - Bot kinds and their required credentials
  - Security whitelist

Exit codes:
  0 - Configuration is valid
  1 - Configuration has errors`,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		configFile := validateConfigFile
		if configFile == "" {
			configFile = findConfigFile()
		}
		if configFile == "" {
			fmt.Fprintln(out, "❌ No configuration file found")
			fmt.Fprintln(out, "\nSpecify a config file with --config or ensure one exists at:")
			for _, loc := range defaultConfigLocations() {
				fmt.Fprintf(out, "  - %s\n", loc)
			}
			return errInvalidConfig
		}

		cfg, err := core.LoadConfig(configFile)
		if err != nil {
			outputValidationResult(out, ValidationResult{
				Valid:  false,
				Config: configFile,
				Errors: []string{err.Error()},
			}, validateJSON)
			return errInvalidConfig
		}

		result := ValidationResult{
			Valid:    true,
			Config:   configFile,
			Bots:     cfg.EnabledBots(),
			Warnings: validateConfigDetails(cfg),
		}

		if validateShow && !validateJSON {
			fmt.Fprintf(out, "✓ Configuration loaded: %s\n\n", configFile)
			fmt.Fprintf(out, "Command start: %q\n", cfg.CommandStart)
			fmt.Fprintf(out, "\nBots (%d):\n", len(cfg.Bots))
			for _, kind := range core.BotKinds {
				bot, ok := cfg.Bots[kind]
				if !ok {
					continue
				}
				status := "disabled"
				if bot.Enabled {
					status = "enabled"
				}
				fmt.Fprintf(out, "  - %s: %s\n", kind, status)
			}
			fmt.Fprintln(out)
		}

		outputValidationResult(out, result, validateJSON)
		return nil
	},
}

func defaultConfigLocations() []string {
	return []string{
		"config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config/botparams/config.yaml"),
		"/etc/botparams/config.yaml",
	}
}

func findConfigFile() string {
	for _, loc := range defaultConfigLocations() {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

func outputValidationResult(out io.Writer, result ValidationResult, jsonFormat bool) {
	if jsonFormat {
		output, err := json.Marshal(result)
		if err != nil {
			fmt.Fprintf(out, "{\"error\": \"failed to marshal json: %v\"}\n", err)
			return
		}
		fmt.Fprintln(out, string(output))
		return
	}

	if result.Valid {
		fmt.Fprintln(out, "✓ Configuration is valid")
		fmt.Fprintf(out, "  - Config: %s\n", result.Config)
		fmt.Fprintf(out, "  - Bots enabled: %d\n", len(result.Bots))
		if len(result.Warnings) > 0 {
			fmt.Fprintln(out, "\n⚠️  Warnings:")
			for _, warning := range result.Warnings {
				fmt.Fprintf(out, "  - %s\n", warning)
			}
		}
		return
	}

	fmt.Fprintln(out, "❌ Configuration validation failed:")
	for _, errMsg := range result.Errors {
		fmt.Fprintf(out, "  - %s\n", errMsg)
	}
}

func validateConfigDetails(cfg *core.Config) []string {
	var warnings []string

	if !cfg.Security.WhitelistEnabled {
		warnings = append(warnings, "Whitelist is disabled - every user can run commands")
	} else {
		for _, kind := range cfg.EnabledBots() {
			if len(cfg.Security.AllowedUsers[kind]) == 0 {
				warnings = append(warnings, fmt.Sprintf("Bot '%s' is enabled but no users are allowed", kind))
			}
		}
	}

	for _, start := range cfg.CommandStart {
		if start == "" {
			warnings = append(warnings, "Empty command_start entry - every message starting with a command name triggers it")
			break
		}
	}

	return warnings
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "config", "c", "", "Configuration file path")
	validateCmd.Flags().BoolVar(&validateShow, "show", false, "Show full configuration details")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output in JSON format")
}
