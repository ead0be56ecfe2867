package params

import (
	"context"
	"slices"
	"strings"

	"github.com/keepmind9/botparams/internal/logger"
	"github.com/keepmind9/botparams/pkg/adapters/feishu"
	"github.com/keepmind9/botparams/pkg/adapters/onebot"
	"github.com/keepmind9/botparams/pkg/adapters/telegram"
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/sirupsen/logrus"
)

// Checker is a single predicate over a State
type Checker func(ctx context.Context, s *State) (bool, error)

// adapterName is AdapterName memoized per State
var adapterName = Depends(AdapterName)

// Rule passes when all of its checkers pass. The zero Rule always passes.
type Rule struct {
	checkers []Checker
}

// NewRule builds a Rule from checkers; nil checkers are skipped
func NewRule(checkers ...Checker) Rule {
	r := Rule{}
	for _, c := range checkers {
		if c != nil {
			r.checkers = append(r.checkers, c)
		}
	}
	return r
}

// And returns a Rule that requires r and every one of others
func (r Rule) And(others ...Rule) Rule {
	out := Rule{checkers: slices.Clone(r.checkers)}
	for _, o := range others {
		out.checkers = append(out.checkers, o.checkers...)
	}
	return out
}

// Check runs the checkers in order and stops at the first failure or error
func (r Rule) Check(ctx context.Context, s *State) (bool, error) {
	if err := s.validate(); err != nil {
		return false, err
	}
	for _, c := range r.checkers {
		ok, err := c(ctx, s)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// AllowAdapters passes when the live adapter is one of names
func AllowAdapters(names ...string) Rule {
	allowed := slices.Clone(names)
	return NewRule(func(ctx context.Context, s *State) (bool, error) {
		if len(allowed) == 0 {
			return false, &ValidationError{Field: "adapters", Message: "allow-list is empty"}
		}
		name, err := adapterName(ctx, s)
		if err != nil {
			return false, err
		}
		return slices.Contains(allowed, name), nil
	})
}

// IsPrivateMessage passes for direct messages. It knows the private event
// types of OneBot, Feishu and Telegram; QQ Guild has no direct messages and
// yields ErrNotSupported; every other adapter never passes.
func IsPrivateMessage() Rule {
	return NewRule(isPrivateMessage)
}

func isPrivateMessage(ctx context.Context, s *State) (bool, error) {
	name, err := adapterName(ctx, s)
	if err != nil {
		return false, err
	}

	switch name {
	case constants.OneBot:
		_, ok := s.Event.(*onebot.PrivateMessageEvent)
		return ok, nil
	case constants.Feishu:
		_, ok := s.Event.(*feishu.PrivateMessageEvent)
		return ok, nil
	case constants.Telegram:
		_, ok := s.Event.(*telegram.PrivateMessageEvent)
		return ok, nil
	case constants.QQGuild:
		return false, notSupported(name, "private message detection")
	default:
		logger.WithFields(logrus.Fields{
			"adapter":    name,
			"event_name": s.Event.EventName(),
		}).Debug("private-message-check-unknown-adapter")
		return false, nil
	}
}

// eventNameHasPrefix compares dotted event names segment-wise
func eventNameHasPrefix(name, prefix string) bool {
	return name == prefix || strings.HasPrefix(name, prefix+".")
}
