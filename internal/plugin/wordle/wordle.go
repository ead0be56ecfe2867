// Package wordle is the example command: OneBot and Feishu users who start it
// in a private chat get a greeting and a mention.
package wordle

import (
	"context"
	"fmt"

	"github.com/keepmind9/botparams/internal/core"
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
	"github.com/keepmind9/botparams/pkg/params"
)

// Command is the command name
const Command = "wordle"

// Welcome is the first reply
const Welcome = "欢迎来到 wordle"

var (
	adapterName = params.Depends(params.AdapterName)
	segments    = params.Depends(params.MessageSegmentClass)
)

// New creates the wordle matcher
func New() *core.Matcher {
	rule := params.AllowAdapters(constants.OneBot, constants.Feishu).And(params.IsPrivateMessage())
	return core.OnCommand(Command, core.WithRule(rule)).Handle(handle)
}

func handle(ctx context.Context, c *core.Context) error {
	if err := c.SendText(ctx, Welcome); err != nil {
		return err
	}

	name, err := adapterName(ctx, c.State)
	if err != nil {
		return err
	}
	switch name {
	case constants.OneBot, constants.Feishu:
	default:
		return nil
	}

	ms, err := segments(ctx, c.State)
	if err != nil {
		return fmt.Errorf("failed to resolve message segments: %w", err)
	}
	return c.Send(ctx, message.NewMessage(ms.At(c.Event.UserID()), ms.Text("mua~")))
}
