package core

import (
	"context"
	"fmt"

	"github.com/keepmind9/botparams/pkg/message"
	"github.com/keepmind9/botparams/pkg/params"
)

// Context is what a handler sees of one matched event
type Context struct {
	*params.State

	// Command is the command name as typed, Args the text after it
	Command string
	Args    string
}

// Send replies to the event's conversation
func (c *Context) Send(ctx context.Context, msg message.Message) error {
	return c.Bot.Send(ctx, c.Event, msg)
}

// SendText replies with a text segment built by the live adapter's factory
func (c *Context) SendText(ctx context.Context, text string) error {
	factory, err := segments(ctx, c.State)
	if err != nil {
		return fmt.Errorf("failed to resolve message segments: %w", err)
	}
	return c.Send(ctx, message.NewMessage(factory.Text(text)))
}

// Segments returns the live adapter's segment factory
func (c *Context) Segments(ctx context.Context) (message.Factory, error) {
	return segments(ctx, c.State)
}

var segments = params.Depends(params.MessageSegmentClass)
