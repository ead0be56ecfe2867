// Package plugin collects the command matchers served by botparams.
package plugin

import (
	"github.com/keepmind9/botparams/internal/core"
	"github.com/keepmind9/botparams/internal/plugin/wordle"
)

// All returns a fresh set of every built-in matcher
func All() []*core.Matcher {
	return []*core.Matcher{
		wordle.New(),
	}
}
