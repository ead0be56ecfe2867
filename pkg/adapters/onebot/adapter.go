// Package onebot implements the OneBot v11 protocol over a forward WebSocket.
package onebot

import "github.com/keepmind9/botparams/pkg/constants"

// Adapter is the OneBot v11 adapter
type Adapter struct{}

// Name returns constants.OneBot
func (Adapter) Name() string { return constants.OneBot }
