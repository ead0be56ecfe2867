package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/keepmind9/botparams/internal/logger"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/constants"
	"github.com/keepmind9/botparams/pkg/params"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// inbound is an event queued for dispatch together with its origin
type inbound struct {
	kind  string
	bot   adapters.Bot
	event adapters.Event
}

// Engine starts the configured bots and dispatches their message events to
// the registered matchers.
type Engine struct {
	config   *Config
	mu       sync.RWMutex
	bots     map[string]adapters.Bot // kind -> bot
	matchers []*Matcher              // sorted by priority
	events   chan inbound
}

// NewEngine creates a new Engine instance
func NewEngine(config *Config) *Engine {
	return &Engine{
		config: config,
		bots:   make(map[string]adapters.Bot),
		events: make(chan inbound, constants.EventChannelBufferSize),
	}
}

// RegisterBot registers a bot under its kind
func (e *Engine) RegisterBot(kind string, bot adapters.Bot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bots[kind] = bot
}

// Register adds matchers. Matchers of equal priority keep registration order.
func (e *Engine) Register(matchers ...*Matcher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.matchers = append(e.matchers, matchers...)
	sort.SliceStable(e.matchers, func(i, j int) bool {
		return e.matchers[i].priority < e.matchers[j].priority
	})
}

// Run starts every registered bot and dispatches events until ctx is done.
// Bots are stopped before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	logger.Info("starting-botparams-engine")

	e.mu.RLock()
	bots := make(map[string]adapters.Bot, len(e.bots))
	for kind, bot := range e.bots {
		bots[kind] = bot
	}
	e.mu.RUnlock()

	if len(bots) == 0 {
		return fmt.Errorf("no bots registered")
	}

	g := new(errgroup.Group)
	for kind, bot := range bots {
		kind, bot := kind, bot
		g.Go(func() error {
			logger.WithFields(logrus.Fields{
				"bot_type": kind,
				"adapter":  bot.Adapter().Name(),
			}).Info("starting-bot")
			if err := bot.Start(e.enqueue(ctx, kind)); err != nil {
				return fmt.Errorf("failed to start %s bot: %w", kind, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.WithField("error", err).Error("failed-to-start-bot")
		e.stopBots(bots)
		return err
	}

	e.runEventLoop(ctx)
	return e.stopBots(bots)
}

// enqueue returns the handler passed to the bot of kind
func (e *Engine) enqueue(ctx context.Context, kind string) adapters.EventHandler {
	return func(bot adapters.Bot, event adapters.Event) {
		select {
		case e.events <- inbound{kind: kind, bot: bot, event: event}:
		case <-ctx.Done():
		}
	}
}

func (e *Engine) runEventLoop(ctx context.Context) {
	logger.Info("engine-event-loop-started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("event-loop-shutting-down")
			return
		case in := <-e.events:
			e.HandleEvent(ctx, in.kind, in.bot, in.event)
		}
	}
}

// HandleEvent runs the matchers for one event. Non-message events and users
// outside the whitelist are ignored.
func (e *Engine) HandleEvent(ctx context.Context, kind string, bot adapters.Bot, event adapters.Event) {
	if event == nil || event.EventType() != adapters.EventTypeMessage {
		return
	}

	fields := logrus.Fields{
		"bot_type":   kind,
		"event_name": event.EventName(),
		"user":       event.UserID(),
		"session":    event.SessionID(),
	}
	logger.WithFields(fields).Debug("processing-message-event")

	if !e.config.IsUserAuthorized(kind, event.UserID()) {
		logger.WithFields(fields).Warn("unauthorized-access-attempt")
		return
	}

	e.mu.RLock()
	matchers := e.matchers
	e.mu.RUnlock()

	text := event.PlainText()
	self := addressName(bot)
	state := params.NewState(bot, event)
	blockedAt := 0
	blocked := false

	for _, m := range matchers {
		if blocked && m.priority > blockedAt {
			break
		}

		name, args, ok := m.match(text, e.config.CommandStart, self)
		if !ok {
			continue
		}

		if passed, err := m.permission.Check(ctx, state); err != nil || !passed {
			logCheckFailure(fields, m, "permission", err)
			continue
		}
		if passed, err := m.rule.Check(ctx, state); err != nil || !passed {
			logCheckFailure(fields, m, "rule", err)
			continue
		}

		logger.WithFields(fields).WithField("command", m.command).Info("command-matched")
		if m.handler != nil {
			c := &Context{State: state, Command: name, Args: args}
			if err := m.handler(ctx, c); err != nil {
				logger.WithFields(fields).WithFields(logrus.Fields{
					"command": m.command,
					"error":   err,
				}).Error("command-handler-failed")
			}
		}

		if m.block {
			blocked = true
			blockedAt = m.priority
		}
	}
}

func logCheckFailure(fields logrus.Fields, m *Matcher, check string, err error) {
	entry := logger.WithFields(fields).WithFields(logrus.Fields{
		"command": m.command,
		"check":   check,
	})
	switch {
	case errors.Is(err, params.ErrNotSupported):
		entry.WithField("error", err).Info("command-check-not-supported")
	case err != nil:
		entry.WithField("error", err).Warn("command-check-failed")
	default:
		entry.Debug("command-check-rejected")
	}
}

// Stop stops every registered bot
func (e *Engine) Stop() error {
	e.mu.RLock()
	bots := make(map[string]adapters.Bot, len(e.bots))
	for kind, bot := range e.bots {
		bots[kind] = bot
	}
	e.mu.RUnlock()
	return e.stopBots(bots)
}

func (e *Engine) stopBots(bots map[string]adapters.Bot) error {
	g := new(errgroup.Group)
	for kind, bot := range bots {
		kind, bot := kind, bot
		g.Go(func() error {
			logger.WithField("bot_type", kind).Info("stopping-bot")
			if err := bot.Stop(); err != nil {
				logger.WithFields(logrus.Fields{
					"bot_type": kind,
					"error":    err,
				}).Error("failed-to-stop-bot")
				return fmt.Errorf("failed to stop %s bot: %w", kind, err)
			}
			return nil
		})
	}
	err := g.Wait()
	logger.Info("engine-stopped")
	return err
}

// addressName is the name users put after a command to address this bot
func addressName(bot adapters.Bot) string {
	if named, ok := bot.(interface{ Username() string }); ok && named.Username() != "" {
		return named.Username()
	}
	return bot.SelfID()
}
