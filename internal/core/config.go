// Package core hosts the runtime around the params helpers: configuration,
// bot construction, and the engine that dispatches events to command matchers.
//
// # Configuration
//
// Configuration is loaded from a YAML file with the following sections:
//
//   - command_start: prefixes a command must start with (default "/")
//   - bots: platform credentials keyed by kind
//   - security: per-kind user whitelist
//   - logging: log configuration
//
// # Example Configuration
//
//	command_start: ["/", ""]
//	bots:
//	  onebot:
//	    enabled: true
//	    ws_url: "ws://127.0.0.1:3001"
//	    access_token: "${ONEBOT_TOKEN}"
//	  feishu:
//	    enabled: true
//	    app_id: "cli_xxx"
//	    app_secret: "${FEISHU_SECRET}"
//	security:
//	  whitelist_enabled: true
//	  allowed_users:
//	    onebot: ["1748272409"]
package core

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/keepmind9/botparams/internal/logger"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCommandStart    = "/"
	DefaultLogLevel        = "info"
	DefaultLogMaxSize      = 100 // MB
	DefaultLogMaxBackups   = 5
	DefaultLogMaxAge       = 30 // days
	DefaultLogCompress     = true
	DefaultLogEnableStdout = true
)

// BotKinds lists the supported bot kinds in display order
var BotKinds = []string{KindOneBot, KindFeishu, KindTelegram, KindQQGuild, KindDiscord, KindDingTalk}

// LoadConfig loads configuration from file and expands environment variables
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration content
func ParseConfig(data []byte) (*Config, error) {
	expandedData, err := expandEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	// boolean defaults must be set before decoding so an explicit false sticks
	config := Config{
		Logging: LoggingConfig{
			Compress:     DefaultLogCompress,
			EnableStdout: DefaultLogEnableStdout,
		},
	}
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// expandEnv replaces ${VAR_NAME} patterns with environment variable values
func expandEnv(input string) (string, error) {
	var missingVars []string

	result := os.Expand(input, func(key string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		missingVars = append(missingVars, key)
		return ""
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing required environment variables: %s",
			strings.Join(missingVars, ", "))
	}

	return result, nil
}

// validateConfig applies defaults and checks the configuration
func validateConfig(config *Config) error {
	if len(config.CommandStart) == 0 {
		config.CommandStart = []string{DefaultCommandStart}
	}

	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = DefaultLogMaxSize
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = DefaultLogMaxAge
	}

	enabled := 0
	for kind, bot := range config.Bots {
		if !slices.Contains(BotKinds, kind) {
			return fmt.Errorf("unknown bot kind %q (supported: %s)", kind, strings.Join(BotKinds, ", "))
		}
		if !bot.Enabled {
			continue
		}
		enabled++
		if err := validateBot(kind, bot); err != nil {
			return err
		}
	}

	if config.Security.WhitelistEnabled {
		if len(config.Security.AllowedUsers) == 0 {
			return fmt.Errorf("security.allowed_users cannot be empty when whitelist is enabled")
		}
	}

	if enabled == 0 {
		return fmt.Errorf("at least one bot must be enabled")
	}

	return nil
}

func validateBot(kind string, bot BotConfig) error {
	missing := func(field string) error {
		return fmt.Errorf("bots.%s.%s is required", kind, field)
	}

	switch kind {
	case KindOneBot:
		if bot.WSURL == "" {
			return missing("ws_url")
		}
		if bot.APITimeout != "" {
			if _, err := time.ParseDuration(bot.APITimeout); err != nil {
				return fmt.Errorf("invalid bots.%s.api_timeout: %w", kind, err)
			}
		}
	case KindFeishu, KindDingTalk:
		if bot.AppID == "" {
			return missing("app_id")
		}
		if bot.AppSecret == "" {
			return missing("app_secret")
		}
	case KindQQGuild:
		if bot.AppID == "" {
			return missing("app_id")
		}
		if bot.Token == "" {
			return missing("token")
		}
	case KindTelegram, KindDiscord:
		if bot.Token == "" {
			return missing("token")
		}
	}
	return nil
}

// GetBotConfig retrieves configuration for a specific bot
func (c *Config) GetBotConfig(kind string) (BotConfig, error) {
	bot, exists := c.Bots[kind]
	if !exists {
		return BotConfig{}, fmt.Errorf("bot type %s not found in configuration", kind)
	}

	if !bot.Enabled {
		return BotConfig{}, fmt.Errorf("bot type %s is disabled", kind)
	}

	return bot, nil
}

// EnabledBots returns the kinds of the enabled bots, sorted
func (c *Config) EnabledBots() []string {
	var kinds []string
	for kind, bot := range c.Bots {
		if bot.Enabled {
			kinds = append(kinds, kind)
		}
	}
	sort.Strings(kinds)
	return kinds
}

// IsUserAuthorized checks if a user is in the whitelist of a bot kind
func (c *Config) IsUserAuthorized(kind, userID string) bool {
	if !c.Security.WhitelistEnabled {
		return true
	}

	userIDs, exists := c.Security.AllowedUsers[kind]
	if !exists {
		return false
	}
	return slices.Contains(userIDs, userID)
}

// LoggerConfig converts the logging section for logger.InitLogger
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:        c.Logging.Level,
		File:         c.Logging.File,
		MaxSize:      c.Logging.MaxSize,
		MaxBackups:   c.Logging.MaxBackups,
		MaxAge:       c.Logging.MaxAge,
		Compress:     c.Logging.Compress,
		EnableStdout: c.Logging.EnableStdout,
	}
}
