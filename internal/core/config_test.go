package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_ValidConfig_ReturnsConfigStruct(t *testing.T) {
	t.Setenv("TEST_ONEBOT_TOKEN", "token-12345")

	path := writeConfig(t, `
command_start: ["/", "!"]
security:
  whitelist_enabled: true
  allowed_users:
    onebot:
      - "1748272409"
bots:
  onebot:
    enabled: true
    ws_url: "ws://127.0.0.1:3001"
    access_token: "${TEST_ONEBOT_TOKEN}"
    api_timeout: "5s"
  feishu:
    enabled: false
logging:
  level: debug
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "!"}, config.CommandStart)
	assert.True(t, config.Security.WhitelistEnabled)
	assert.Equal(t, "token-12345", config.Bots[KindOneBot].AccessToken)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, []string{KindOneBot}, config.EnabledBots())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestParseConfig_AppliesDefaults(t *testing.T) {
	config, err := ParseConfig([]byte(`
bots:
  telegram:
    enabled: true
    token: "123:abc"
`))
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultCommandStart}, config.CommandStart)
	assert.Equal(t, DefaultLogLevel, config.Logging.Level)
	assert.Equal(t, DefaultLogMaxSize, config.Logging.MaxSize)
	assert.Equal(t, DefaultLogMaxBackups, config.Logging.MaxBackups)
	assert.Equal(t, DefaultLogMaxAge, config.Logging.MaxAge)
	assert.True(t, config.Logging.Compress)
	assert.True(t, config.Logging.EnableStdout)

	lc := config.LoggerConfig()
	assert.Equal(t, DefaultLogLevel, lc.Level)
	assert.Equal(t, DefaultLogMaxSize, lc.MaxSize)
}

func TestParseConfig_KeepsExplicitFalse(t *testing.T) {
	config, err := ParseConfig([]byte(`
logging:
  enable_stdout: false
  compress: false
bots:
  telegram:
    enabled: true
    token: "123:abc"
`))
	require.NoError(t, err)

	assert.False(t, config.Logging.Compress)
	assert.False(t, config.Logging.EnableStdout)
	assert.Equal(t, DefaultLogLevel, config.Logging.Level)

	lc := config.LoggerConfig()
	assert.False(t, lc.EnableStdout)
	assert.False(t, lc.Compress)
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing env var",
			content: "bots:\n  telegram:\n    enabled: true\n    token: \"${BOTPARAMS_UNSET_VAR}\"\n",
			wantErr: "BOTPARAMS_UNSET_VAR",
		},
		{
			name:    "invalid yaml",
			content: "bots: [",
			wantErr: "failed to parse config",
		},
		{
			name:    "no enabled bots",
			content: "bots:\n  telegram:\n    enabled: false\n",
			wantErr: "at least one bot must be enabled",
		},
		{
			name:    "unknown kind",
			content: "bots:\n  slack:\n    enabled: true\n",
			wantErr: "unknown bot kind",
		},
		{
			name:    "onebot without url",
			content: "bots:\n  onebot:\n    enabled: true\n",
			wantErr: "bots.onebot.ws_url is required",
		},
		{
			name:    "onebot bad timeout",
			content: "bots:\n  onebot:\n    enabled: true\n    ws_url: ws://x\n    api_timeout: soon\n",
			wantErr: "api_timeout",
		},
		{
			name:    "feishu without secret",
			content: "bots:\n  feishu:\n    enabled: true\n    app_id: cli_1\n",
			wantErr: "bots.feishu.app_secret is required",
		},
		{
			name:    "dingtalk without id",
			content: "bots:\n  dingtalk:\n    enabled: true\n",
			wantErr: "bots.dingtalk.app_id is required",
		},
		{
			name:    "qqguild without token",
			content: "bots:\n  qqguild:\n    enabled: true\n    app_id: \"1\"\n",
			wantErr: "bots.qqguild.token is required",
		},
		{
			name:    "discord without token",
			content: "bots:\n  discord:\n    enabled: true\n",
			wantErr: "bots.discord.token is required",
		},
		{
			name:    "whitelist without users",
			content: "security:\n  whitelist_enabled: true\nbots:\n  discord:\n    enabled: true\n    token: t\n",
			wantErr: "allowed_users cannot be empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_GetBotConfig(t *testing.T) {
	config := &Config{Bots: map[string]BotConfig{
		KindDiscord:  {Enabled: true, Token: "t"},
		KindTelegram: {Enabled: false},
	}}

	bot, err := config.GetBotConfig(KindDiscord)
	require.NoError(t, err)
	assert.Equal(t, "t", bot.Token)

	_, err = config.GetBotConfig(KindTelegram)
	assert.Contains(t, err.Error(), "disabled")

	_, err = config.GetBotConfig(KindFeishu)
	assert.Contains(t, err.Error(), "not found")
}

func TestConfig_IsUserAuthorized(t *testing.T) {
	config := &Config{}
	assert.True(t, config.IsUserAuthorized(KindOneBot, "anyone"))

	config.Security = SecurityConfig{
		WhitelistEnabled: true,
		AllowedUsers:     map[string][]string{KindOneBot: {"1748272409"}},
	}
	assert.True(t, config.IsUserAuthorized(KindOneBot, "1748272409"))
	assert.False(t, config.IsUserAuthorized(KindOneBot, "10001"))
	assert.False(t, config.IsUserAuthorized(KindFeishu, "1748272409"))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("BOTPARAMS_A", "alpha")
	got, err := expandEnv("x: ${BOTPARAMS_A}")
	require.NoError(t, err)
	assert.Equal(t, "x: alpha", got)

	_, err = expandEnv("${BOTPARAMS_MISSING_1} ${BOTPARAMS_MISSING_2}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOTPARAMS_MISSING_1, BOTPARAMS_MISSING_2")
}

func TestNewBot(t *testing.T) {
	tests := []struct {
		kind    string
		cfg     BotConfig
		adapter string
	}{
		{KindOneBot, BotConfig{WSURL: "ws://x", APITimeout: "3s"}, "OneBot V11"},
		{KindFeishu, BotConfig{AppID: "a", AppSecret: "b", EncryptKey: "k"}, "Feishu"},
		{KindTelegram, BotConfig{Token: "t"}, "Telegram"},
		{KindQQGuild, BotConfig{AppID: "1", Token: "t", Sandbox: true}, "QQ Guild"},
		{KindDiscord, BotConfig{Token: "t"}, "Discord"},
		{KindDingTalk, BotConfig{AppID: "a", AppSecret: "b"}, "DingTalk"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			bot, err := NewBot(tt.kind, tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.adapter, bot.Adapter().Name())
		})
	}

	_, err := NewBot("slack", BotConfig{})
	assert.Error(t, err)

	_, err = NewBot(KindOneBot, BotConfig{APITimeout: "soon"})
	assert.Error(t, err)
}
