// Package telegram is an experimental Telegram integration using long polling.
package telegram

import (
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
)

// Adapter is the Telegram adapter. It exposes its segment factory directly
// since Telegram has no entry in the built-in lookup table.
type Adapter struct{}

// Name returns constants.Telegram
func (Adapter) Name() string { return constants.Telegram }

// MessageSegments returns the Telegram segment factory
func (Adapter) MessageSegments() message.Factory { return Segments }
