package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameroncuttingedge/tictacfour/board"
)

func TestEncodeWirePayloads(t *testing.T) {
	data, err := Encode(PawnSelected{PawnID: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"PawnSelected","payload":{"pawnId":7}}`, string(data))

	data, err = Encode(CellSelected{Cell: board.CellConfig{ID: 3, X: 461, Y: 74, Width: 135, Height: 135}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"CellSelected","payload":{"id":3,"x":461,"y":74,"width":135,"height":135}}`, string(data))

	data, err = Encode(RestartGame{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"RestartGame","payload":{}}`, string(data))
}

func TestDecode(t *testing.T) {
	ev, err := Decode([]byte(`{"name":"CellSelected","payload":{"id":9,"x":1.5,"y":2,"width":3,"height":4}}`))
	require.NoError(t, err)
	assert.Equal(t, CellSelected{Cell: board.CellConfig{ID: 9, X: 1.5, Y: 2, Width: 3, Height: 4}}, ev)

	ev, err = Decode([]byte(`{"name":"RestartGame"}`))
	require.NoError(t, err)
	assert.Equal(t, RestartGame{}, ev)

	_, err = Decode([]byte(`{"name":"Resign","payload":{}}`))
	assert.True(t, errors.Is(err, ErrUnknownEvent))

	_, err = Decode([]byte(`{"name":"PawnSelected"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"name":"PawnSelected","payload":{"pawnId":"x"}}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestEnvelopeEmbedsInDocuments(t *testing.T) {
	env, err := Wrap(PawnSelected{PawnID: 2})
	require.NoError(t, err)

	doc := struct {
		GameEvent *Envelope `json:"gameEvent"`
	}{GameEvent: env}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var back struct {
		GameEvent *Envelope `json:"gameEvent"`
	}
	require.NoError(t, json.Unmarshal(data, &back))
	ev, err := back.GameEvent.Event()
	require.NoError(t, err)
	assert.Equal(t, PawnSelected{PawnID: 2}, ev)
}

func TestBusEmitRelaysBeforeDispatch(t *testing.T) {
	var order []string
	bus := NewBus(RelayFunc(func(ev GameEvent) error {
		order = append(order, "relay:"+string(ev.Name()))
		return nil
	}))
	require.NoError(t, bus.OnPawnSelected(func(e PawnSelected) {
		order = append(order, "local:PawnSelected")
	}))

	require.NoError(t, bus.Emit(PawnSelected{PawnID: 1}, true))
	require.NoError(t, bus.Emit(PawnSelected{PawnID: 1}, false))

	assert.Equal(t, []string{"relay:PawnSelected", "local:PawnSelected", "local:PawnSelected"}, order)
}

func TestBusRelayErrorSkipsDispatch(t *testing.T) {
	offline := errors.New("offline")
	bus := NewBus(RelayFunc(func(GameEvent) error { return offline }))
	restarted := 0
	require.NoError(t, bus.OnRestartGame(func(RestartGame) { restarted++ }))

	err := bus.Emit(RestartGame{}, true)
	assert.ErrorIs(t, err, ErrRelayFailed)
	assert.ErrorIs(t, err, offline)
	assert.Equal(t, 0, restarted)

	// events that are not relayed still reach the handler
	require.NoError(t, bus.Emit(RestartGame{}, false))
	assert.Equal(t, 1, restarted)
}

func TestBusWithoutRelay(t *testing.T) {
	bus := NewBus(nil)
	var got CellSelected
	require.NoError(t, bus.OnCellSelected(func(e CellSelected) { got = e }))

	require.NoError(t, bus.Emit(CellSelected{Cell: board.CellConfig{ID: 4}}, true))
	assert.Equal(t, 4, got.Cell.ID)

	// no handler registered: nothing happens
	assert.NoError(t, bus.Emit(PawnSelected{PawnID: 1}, true))
}

func TestBusRejectsSecondHandler(t *testing.T) {
	bus := NewBus(nil)
	require.NoError(t, bus.OnPawnSelected(func(PawnSelected) {}))
	require.NoError(t, bus.OnCellSelected(func(CellSelected) {}))
	require.NoError(t, bus.OnRestartGame(func(RestartGame) {}))

	assert.ErrorIs(t, bus.OnPawnSelected(func(PawnSelected) {}), ErrHandlerRegistered)
	assert.ErrorIs(t, bus.OnCellSelected(func(CellSelected) {}), ErrHandlerRegistered)
	assert.ErrorIs(t, bus.OnRestartGame(func(RestartGame) {}), ErrHandlerRegistered)
}
