// Package discord integrates Discord through discordgo. It has no entry in the
// built-in segment lookup table and is resolved through the adapter's own
// segment factory.
package discord

import (
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
)

// Adapter is the Discord adapter
type Adapter struct{}

func (Adapter) Name() string { return constants.Discord }

// MessageSegments returns the Discord segment factory
func (Adapter) MessageSegments() message.Factory { return Segments }
