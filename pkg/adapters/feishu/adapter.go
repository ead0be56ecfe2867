// Package feishu connects to Feishu (Lark) through the open platform SDK.
package feishu

import "github.com/keepmind9/botparams/pkg/constants"

// Adapter is the Feishu adapter
type Adapter struct{}

// Name returns constants.Feishu
func (Adapter) Name() string { return constants.Feishu }
