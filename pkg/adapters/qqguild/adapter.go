// Package qqguild connects to QQ guild channels through the bot gateway.
package qqguild

import "github.com/keepmind9/botparams/pkg/constants"

// Adapter is the QQ guild adapter
type Adapter struct{}

// Name returns constants.QQGuild
func (Adapter) Name() string { return constants.QQGuild }
