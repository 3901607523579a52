package events

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var (
	ErrHandlerRegistered = errors.New("handler already registered")
	ErrRelayFailed       = errors.New("relay failed")
)

// Relay forwards locally originated events to a remote peer.
type Relay interface {
	Relay(ev GameEvent) error
}

// RelayFunc adapts a function to a Relay.
type RelayFunc func(ev GameEvent) error

func (f RelayFunc) Relay(ev GameEvent) error { return f(ev) }

// Bus dispatches game events to one handler per event name. It does no
// locking: callers serialize Emit calls.
type Bus struct {
	relay Relay

	onPawnSelected func(PawnSelected)
	onCellSelected func(CellSelected)
	onRestartGame  func(RestartGame)
}

// NewBus creates a bus. relay may be nil for pass-and-play sessions.
func NewBus(relay Relay) *Bus {
	return &Bus{relay: relay}
}

func (b *Bus) OnPawnSelected(fn func(PawnSelected)) error {
	if b.onPawnSelected != nil {
		return fmt.Errorf("%w: %s", ErrHandlerRegistered, PawnSelectedName)
	}
	b.onPawnSelected = fn
	return nil
}

func (b *Bus) OnCellSelected(fn func(CellSelected)) error {
	if b.onCellSelected != nil {
		return fmt.Errorf("%w: %s", ErrHandlerRegistered, CellSelectedName)
	}
	b.onCellSelected = fn
	return nil
}

func (b *Bus) OnRestartGame(fn func(RestartGame)) error {
	if b.onRestartGame != nil {
		return fmt.Errorf("%w: %s", ErrHandlerRegistered, RestartGameName)
	}
	b.onRestartGame = fn
	return nil
}

// Emit forwards the event to the relay when shouldRelay is set, then runs the
// local handler for it. When the relay fails the local handler does not run,
// so both peers keep the same state, and the error wraps ErrRelayFailed.
func (b *Bus) Emit(ev GameEvent, shouldRelay bool) error {
	if shouldRelay && b.relay != nil {
		if err := b.relay.Relay(ev); err != nil {
			log.Error().Err(err).Str("event", string(ev.Name())).Msg("Failed to relay game event")
			return fmt.Errorf("%w: %s: %w", ErrRelayFailed, ev.Name(), err)
		}
	}

	switch e := ev.(type) {
	case PawnSelected:
		if b.onPawnSelected != nil {
			b.onPawnSelected(e)
			return nil
		}
	case CellSelected:
		if b.onCellSelected != nil {
			b.onCellSelected(e)
			return nil
		}
	case RestartGame:
		if b.onRestartGame != nil {
			b.onRestartGame(e)
			return nil
		}
	default:
		log.Warn().Str("type", fmt.Sprintf("%T", ev)).Msg("Dropping unknown game event")
		return nil
	}
	log.Debug().Str("event", string(ev.Name())).Msg("No handler for game event")
	return nil
}
