package core

import (
	"context"
	"strings"
	"unicode"

	"github.com/keepmind9/botparams/pkg/params"
)

// DefaultPriority is the priority of matchers created without WithPriority.
// Lower values run first.
const DefaultPriority = 1

// Handler runs when a matcher accepts an event
type Handler func(ctx context.Context, c *Context) error

// Matcher binds a command to a handler, guarded by a permission and a rule
type Matcher struct {
	command    string
	aliases    []string
	rule       params.Rule
	permission params.Permission
	priority   int
	block      bool
	handler    Handler
}

// MatcherOption configures a Matcher
type MatcherOption func(*Matcher)

// OnCommand creates a matcher for command. Matching blocks lower priority
// matchers unless WithBlock(false) is given.
func OnCommand(command string, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		command:  command,
		priority: DefaultPriority,
		block:    true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithRule sets the rule every event must pass
func WithRule(rule params.Rule) MatcherOption {
	return func(m *Matcher) { m.rule = rule }
}

// WithPermission sets the permission an event must pass
func WithPermission(permission params.Permission) MatcherOption {
	return func(m *Matcher) { m.permission = permission }
}

// WithAliases adds alternative command names
func WithAliases(aliases ...string) MatcherOption {
	return func(m *Matcher) { m.aliases = append(m.aliases, aliases...) }
}

// WithPriority sets the priority; lower runs first
func WithPriority(priority int) MatcherOption {
	return func(m *Matcher) { m.priority = priority }
}

// WithBlock controls whether a match stops lower priority matchers
func WithBlock(block bool) MatcherOption {
	return func(m *Matcher) { m.block = block }
}

// Handle sets the handler
func (m *Matcher) Handle(fn Handler) *Matcher {
	m.handler = fn
	return m
}

// Command returns the primary command name
func (m *Matcher) Command() string { return m.command }

// match reports whether text invokes the matcher and returns the name used
// and the arguments. A command is a start prefix followed by the name, then
// whitespace or the end. The name may carry an @self suffix, the form Telegram
// uses in groups; a suffix naming another bot does not match.
func (m *Matcher) match(text string, starts []string, self string) (string, string, bool) {
	text = strings.TrimSpace(text)
	for _, start := range starts {
		if !strings.HasPrefix(text, start) {
			continue
		}
		rest := text[len(start):]
		for _, name := range append([]string{m.command}, m.aliases...) {
			if name == "" || !strings.HasPrefix(rest, name) {
				continue
			}
			args, ok := trimAddressee(rest[len(name):], self)
			if !ok {
				continue
			}
			if args == "" {
				return name, "", true
			}
			if r := []rune(args)[0]; unicode.IsSpace(r) {
				return name, strings.TrimSpace(args), true
			}
		}
	}
	return "", "", false
}

// trimAddressee strips a leading @self from args
func trimAddressee(args, self string) (string, bool) {
	if !strings.HasPrefix(args, "@") {
		return args, true
	}
	target := args[1:]
	if i := strings.IndexFunc(target, unicode.IsSpace); i >= 0 {
		target, args = target[:i], target[i:]
	} else {
		args = ""
	}
	if self == "" || !strings.EqualFold(target, self) {
		return "", false
	}
	return args, true
}
