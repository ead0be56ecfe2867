package params

import (
	"context"
	"errors"

	"github.com/keepmind9/botparams/pkg/constants"
)

// Permission passes when any of its checkers passes. The zero Permission
// always passes.
type Permission struct {
	checkers []Checker
}

// NewPermission builds a Permission from checkers; nil checkers are skipped
func NewPermission(checkers ...Checker) Permission {
	p := Permission{}
	for _, c := range checkers {
		if c != nil {
			p.checkers = append(p.checkers, c)
		}
	}
	return p
}

// Or returns a Permission that passes when p or any of others passes
func (p Permission) Or(others ...Permission) Permission {
	out := NewPermission(p.checkers...)
	for _, o := range others {
		out.checkers = append(out.checkers, o.checkers...)
	}
	return out
}

// Check runs the checkers until one passes. Checker errors do not stop the
// run; they are returned joined only when nothing passed.
func (p Permission) Check(ctx context.Context, s *State) (bool, error) {
	if err := s.validate(); err != nil {
		return false, err
	}
	if len(p.checkers) == 0 {
		return true, nil
	}

	var errs []error
	for _, c := range p.checkers {
		ok, err := c(ctx, s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

// PrivateMessage passes for private messages, decided by event name: OneBot
// and Telegram names start with "message.private", Feishu uses "message.p2p".
func PrivateMessage() Permission {
	return NewPermission(func(ctx context.Context, s *State) (bool, error) {
		name, err := adapterName(ctx, s)
		if err != nil {
			return false, err
		}
		switch name {
		case constants.OneBot, constants.Telegram:
			return eventNameHasPrefix(s.Event.EventName(), constants.EventPrivateMessagePrefix), nil
		case constants.Feishu:
			return s.Event.EventName() == constants.EventFeishuP2P, nil
		default:
			return false, nil
		}
	})
}

func adapterIs(want string) Permission {
	return NewPermission(func(ctx context.Context, s *State) (bool, error) {
		name, err := adapterName(ctx, s)
		if err != nil {
			return false, err
		}
		return name == want, nil
	})
}

// OneBotOnly passes for events received through OneBot V11
func OneBotOnly() Permission { return adapterIs(constants.OneBot) }

// FeishuOnly passes for events received through Feishu
func FeishuOnly() Permission { return adapterIs(constants.Feishu) }

// TelegramOnly passes for events received through Telegram
func TelegramOnly() Permission { return adapterIs(constants.Telegram) }

// QQGuildOnly passes for events received through QQ Guild
func QQGuildOnly() Permission { return adapterIs(constants.QQGuild) }
