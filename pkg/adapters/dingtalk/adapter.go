// Package dingtalk integrates DingTalk through the stream SDK. Replies go out
// through the session webhook delivered with each message.
package dingtalk

import (
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/message"
)

// Adapter is the DingTalk adapter
type Adapter struct{}

func (Adapter) Name() string { return constants.DingTalk }

// MessageSegments returns the DingTalk segment factory. It has no Image
// method: session webhooks only take text.
func (Adapter) MessageSegments() message.Factory { return Segments }
