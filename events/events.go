package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cameroncuttingedge/tictacfour/board"
)

// Name tags a GameEvent on the wire.
type Name string

const (
	PawnSelectedName Name = "PawnSelected"
	CellSelectedName Name = "CellSelected"
	RestartGameName  Name = "RestartGame"
)

var ErrUnknownEvent = errors.New("unknown game event")

// GameEvent is one of PawnSelected, CellSelected or RestartGame. It is the
// only value exchanged between peers.
type GameEvent interface {
	Name() Name
	gameEvent()
}

// PawnSelected is sent when a player picks the pawn the opponent must place.
type PawnSelected struct {
	PawnID int `json:"pawnId"`
}

// CellSelected is sent when a player places the selected pawn. It carries
// the resolved cell descriptor rather than just its id.
type CellSelected struct {
	Cell board.CellConfig
}

// RestartGame clears the board and starts a new round.
type RestartGame struct{}

func (PawnSelected) Name() Name { return PawnSelectedName }
func (CellSelected) Name() Name { return CellSelectedName }
func (RestartGame) Name() Name  { return RestartGameName }

func (PawnSelected) gameEvent() {}
func (CellSelected) gameEvent() {}
func (RestartGame) gameEvent()  {}

// Envelope is the wire representation of a GameEvent.
type Envelope struct {
	Name    Name            `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Wrap encodes the event payload into an envelope.
func Wrap(ev GameEvent) (*Envelope, error) {
	var payload any
	switch e := ev.(type) {
	case PawnSelected:
		payload = e
	case CellSelected:
		payload = e.Cell
	case RestartGame:
		payload = struct{}{}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", ev.Name(), err)
	}
	return &Envelope{Name: ev.Name(), Payload: raw}, nil
}

// Event decodes the envelope back into its typed event.
func (e *Envelope) Event() (GameEvent, error) {
	switch e.Name {
	case PawnSelectedName:
		var ev PawnSelected
		if err := decodePayload(e, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case CellSelectedName:
		var cell board.CellConfig
		if err := decodePayload(e, &cell); err != nil {
			return nil, err
		}
		return CellSelected{Cell: cell}, nil
	case RestartGameName:
		return RestartGame{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, e.Name)
	}
}

func decodePayload(e *Envelope, v any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return fmt.Errorf("decode %s payload: missing payload", e.Name)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Name, err)
	}
	return nil
}

// Encode marshals the event as a JSON envelope.
func Encode(ev GameEvent) ([]byte, error) {
	env, err := Wrap(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// Decode parses a JSON envelope into its typed event.
func Decode(data []byte) (GameEvent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode game event: %w", err)
	}
	return env.Event()
}
