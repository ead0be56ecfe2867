package core

// Bot kinds, the keys of the bots section
const (
	KindOneBot   = "onebot"
	KindFeishu   = "feishu"
	KindTelegram = "telegram"
	KindQQGuild  = "qqguild"
	KindDiscord  = "discord"
	KindDingTalk = "dingtalk"
)

// Config represents the complete botparams configuration structure
type Config struct {
	CommandStart []string             `yaml:"command_start"`
	Security     SecurityConfig       `yaml:"security"`
	Bots         map[string]BotConfig `yaml:"bots"`
	Logging      LoggingConfig        `yaml:"logging"`
}

// SecurityConfig represents security and access control configuration
type SecurityConfig struct {
	WhitelistEnabled bool                `yaml:"whitelist_enabled"`
	AllowedUsers     map[string][]string `yaml:"allowed_users"` // bot kind -> user ids
}

// BotConfig represents bot configuration. Which fields apply depends on the kind.
type BotConfig struct {
	Enabled bool `yaml:"enabled"`

	// onebot
	WSURL       string `yaml:"ws_url"`
	AccessToken string `yaml:"access_token"`
	APITimeout  string `yaml:"api_timeout"`

	// feishu, qqguild, dingtalk (client id / client secret)
	AppID     string `yaml:"app_id"`
	AppSecret string `yaml:"app_secret"`

	// feishu, optional
	EncryptKey        string `yaml:"encrypt_key"`
	VerificationToken string `yaml:"verification_token"`

	// telegram, discord, qqguild
	Token string `yaml:"token"`

	// qqguild
	Sandbox bool `yaml:"sandbox"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	File         string `yaml:"file"`          // Log file path
	MaxSize      int    `yaml:"max_size"`      // Single file max size in MB (default: 100)
	MaxBackups   int    `yaml:"max_backups"`   // Number of backups to keep (default: 5)
	MaxAge       int    `yaml:"max_age"`       // Maximum days to retain (default: 30)
	Compress     bool   `yaml:"compress"`      // Whether to compress old logs (default: true)
	EnableStdout bool   `yaml:"enable_stdout"` // Also output to stdout (default: true)
}
