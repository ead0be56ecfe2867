// Package params resolves adapter specific pieces for command handlers.
//
// A handler never branches on platform packages itself. Given the State of the
// current run (the bot that received the event and the event), the functions
// here return the adapter name, the segment factory, an image builder and the
// private-message and allow-list predicates.
//
// Every resolver has the Dependent shape, so it can be wrapped with Depends and
// computed at most once per State:
//
//	segments := params.Depends(params.MessageSegmentClass)
//	factory, err := segments(ctx, state)
package params

import (
	"context"
	"sync"

	"github.com/keepmind9/botparams/pkg/adapters"
)

// State is the per-event context dependencies are resolved against
type State struct {
	Bot   adapters.Bot
	Event adapters.Event

	mu    sync.Mutex
	cache map[*dependsKey]any
}

// NewState creates a State for one event
func NewState(bot adapters.Bot, event adapters.Event) *State {
	return &State{Bot: bot, Event: event}
}

func (s *State) validate() error {
	if s == nil {
		return &ValidationError{Field: "state", Message: "must not be nil"}
	}
	if s.Bot == nil {
		return &ValidationError{Field: "state.bot", Message: "must not be nil"}
	}
	if s.Event == nil {
		return &ValidationError{Field: "state.event", Message: "must not be nil"}
	}
	return nil
}

// Dependent computes a value from a State
type Dependent[T any] func(ctx context.Context, s *State) (T, error)

type dependsKey struct{ _ byte }

// Depends memoizes fn per State. Errors are not cached.
func Depends[T any](fn Dependent[T]) Dependent[T] {
	key := &dependsKey{}
	return func(ctx context.Context, s *State) (T, error) {
		if s == nil {
			return fn(ctx, s)
		}

		s.mu.Lock()
		if v, ok := s.cache[key]; ok {
			s.mu.Unlock()
			return v.(T), nil
		}
		s.mu.Unlock()

		v, err := fn(ctx, s)
		if err != nil {
			return v, err
		}

		s.mu.Lock()
		if s.cache == nil {
			s.cache = make(map[*dependsKey]any)
		}
		s.cache[key] = v
		s.mu.Unlock()
		return v, nil
	}
}
