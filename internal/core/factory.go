package core

import (
	"fmt"
	"time"

	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/adapters/dingtalk"
	"github.com/keepmind9/botparams/pkg/adapters/discord"
	"github.com/keepmind9/botparams/pkg/adapters/feishu"
	"github.com/keepmind9/botparams/pkg/adapters/onebot"
	"github.com/keepmind9/botparams/pkg/adapters/qqguild"
	"github.com/keepmind9/botparams/pkg/adapters/telegram"
)

// NewBot builds the bot for kind from its configuration
func NewBot(kind string, cfg BotConfig) (adapters.Bot, error) {
	switch kind {
	case KindOneBot:
		var timeout time.Duration
		if cfg.APITimeout != "" {
			d, err := time.ParseDuration(cfg.APITimeout)
			if err != nil {
				return nil, fmt.Errorf("invalid api_timeout for %s: %w", kind, err)
			}
			timeout = d
		}
		return onebot.NewBot(onebot.Config{
			WSURL:       cfg.WSURL,
			AccessToken: cfg.AccessToken,
			APITimeout:  timeout,
		}), nil

	case KindFeishu:
		bot := feishu.NewBot(cfg.AppID, cfg.AppSecret)
		if cfg.EncryptKey != "" {
			bot.EncryptKey = cfg.EncryptKey
		}
		if cfg.VerificationToken != "" {
			bot.VerificationToken = cfg.VerificationToken
		}
		return bot, nil

	case KindTelegram:
		return telegram.NewBot(cfg.Token), nil

	case KindQQGuild:
		return qqguild.NewBot(qqguild.Config{
			AppID:   cfg.AppID,
			Token:   cfg.Token,
			Sandbox: cfg.Sandbox,
		}), nil

	case KindDiscord:
		return discord.NewBot(cfg.Token), nil

	case KindDingTalk:
		return dingtalk.NewBot(cfg.AppID, cfg.AppSecret), nil

	default:
		return nil, fmt.Errorf("bot type '%s' not implemented", kind)
	}
}
