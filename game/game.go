package game

import (
	"fmt"

	"github.com/cameroncuttingedge/tictacfour/board"
	"github.com/cameroncuttingedge/tictacfour/events"
	"github.com/rs/zerolog/log"
)

type Phase int

const (
	Ready Phase = iota
	SelectPawn
	SelectCell
	GameOver
)

func (p Phase) String() string {
	switch p {
	case Ready:
		return "ready"
	case SelectPawn:
		return "select-pawn"
	case SelectCell:
		return "select-cell"
	case GameOver:
		return "game-over"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

type Kind int

const (
	PassAndPlay Kind = iota
	Online
)

func (k Kind) String() string {
	if k == Online {
		return "online"
	}
	return "pass-and-play"
}

// Presenter receives the outcomes of the state machine. Implementations must
// not call back into the game from these methods.
type Presenter interface {
	OnPhaseChanged(phase Phase, turn Player)
	OnWin(pawnIDs []int)
	OnBoardReset()
}

// NopPresenter ignores every outcome.
type NopPresenter struct{}

func (NopPresenter) OnPhaseChanged(Phase, Player) {}
func (NopPresenter) OnWin([]int)                  {}
func (NopPresenter) OnBoardReset()                {}

// NoPawn marks an empty selection or an empty cell in a Session.
const NoPawn = -1

// Session is a comparable snapshot of the game state.
type Session struct {
	Phase            Phase
	TurnPlayerID     int
	StartingPlayerID int
	SelectedPawnID   int
	Cells            [board.CellCount]int
	Kind             Kind
}

// Game is the session state machine. It is not safe for concurrent use: all
// calls, local or remote, must come from one goroutine.
type Game struct {
	kind             Kind
	players          [2]Player
	startingPlayerID int
	turnPlayerID     int
	phase            Phase

	pawns    [board.CellCount]board.Pawn
	board    board.Board
	selected *board.Pawn
	winner   *Line

	layout    board.Layout
	bus       *events.Bus
	presenter Presenter
}

type Option func(*Game)

// WithRelay forwards local intents to a remote peer.
func WithRelay(r events.Relay) Option {
	return func(g *Game) { g.bus = events.NewBus(r) }
}

func WithPresenter(p Presenter) Option {
	return func(g *Game) {
		if p != nil {
			g.presenter = p
		}
	}
}

func WithLayout(l board.Layout) Option {
	return func(g *Game) { g.layout = l }
}

// NewGame creates a game in the Ready phase. Call Start once the presenter
// is set up.
func NewGame(kind Kind, players [2]Player, startingPlayerID int, opts ...Option) (*Game, error) {
	ordered, err := orderPlayers(players)
	if err != nil {
		return nil, err
	}
	if startingPlayerID != 0 && startingPlayerID != 1 {
		return nil, fmt.Errorf("%w: starting player %d", ErrInvalidPlayers, startingPlayerID)
	}

	g := &Game{
		kind:             kind,
		players:          ordered,
		startingPlayerID: startingPlayerID,
		turnPlayerID:     startingPlayerID,
		phase:            Ready,
		pawns:            board.NewPawns(),
		layout:           board.DefaultLayout,
		bus:              events.NewBus(nil),
		presenter:        NopPresenter{},
	}
	for _, opt := range opts {
		opt(g)
	}

	if err := g.registerGameEvents(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Game) registerGameEvents() error {
	if err := g.bus.OnPawnSelected(g.onPawnSelected); err != nil {
		return err
	}
	if err := g.bus.OnCellSelected(g.onCellSelected); err != nil {
		return err
	}
	return g.bus.OnRestartGame(g.onRestartGame)
}

// Start leaves the Ready phase and lets the starting player pick a pawn.
func (g *Game) Start() {
	if g.phase != Ready {
		return
	}
	g.initialize()
	g.changePhase(SelectPawn)
}

func (g *Game) initialize() {
	g.board.Clear()
	g.selected = nil
	g.winner = nil
	g.turnPlayerID = g.startingPlayerID
}

func (g *Game) onPawnSelected(e events.PawnSelected) {
	if g.phase != SelectPawn {
		g.discard(e, "not selecting a pawn")
		return
	}
	if !board.ValidPawnID(e.PawnID) || g.board.CellOf(e.PawnID) >= 0 {
		g.discard(e, "pawn unavailable")
		return
	}

	g.selected = &g.pawns[e.PawnID]
	// The player who picks the pawn hands it to the opponent, who places it.
	g.turnPlayerID = NextPlayer(g.players, g.turnPlayerID).ID

	log.Info().Int("pawnID", e.PawnID).Int("turnPlayerID", g.turnPlayerID).Msg("Pawn selected")
	g.changePhase(SelectCell)
}

func (g *Game) onCellSelected(e events.CellSelected) {
	if g.phase != SelectCell || g.selected == nil {
		g.discard(e, "not selecting a cell")
		return
	}
	cellID := e.Cell.ID
	if err := g.board.Place(cellID, g.selected); err != nil {
		g.discard(e, err.Error())
		return
	}
	log.Info().Int("pawnID", g.selected.ID).Int("cellID", cellID).Msg("Pawn placed")
	g.selected = nil

	line, won := Evaluate(g.board.Cells(), cellID)
	if won {
		g.winner = &line
		log.Info().
			Str("line", string(line.Kind)).
			Ints("pawns", line.PawnIDs()).
			Int("winnerID", g.turnPlayerID).
			Msg("Game won")
		g.presenter.OnWin(line.PawnIDs())
		g.changePhase(GameOver)
		return
	}
	g.changePhase(SelectPawn)
}

func (g *Game) onRestartGame(events.RestartGame) {
	log.Info().Str("kind", g.kind.String()).Msg("Restarting game")
	g.initialize()
	g.presenter.OnBoardReset()
	g.changePhase(SelectPawn)
}

func (g *Game) discard(ev events.GameEvent, reason string) {
	log.Debug().
		Str("event", string(ev.Name())).
		Str("phase", g.phase.String()).
		Str("reason", reason).
		Msg("Discarding game event")
}

func (g *Game) changePhase(phase Phase) {
	if phase == g.phase {
		return
	}
	g.phase = phase
	g.presenter.OnPhaseChanged(phase, g.TurnPlayer())
}

// SelectPawn picks a pawn for the opponent on behalf of the local player.
// It returns false when the intent is not acceptable right now, and an error
// when the intent could not reach the peer; in both cases nothing changes.
func (g *Game) SelectPawn(pawnID int) (bool, error) {
	if !g.IsState(SelectPawn) || !g.IsMyTurn() || !board.ValidPawnID(pawnID) || g.board.CellOf(pawnID) >= 0 {
		return false, nil
	}
	if err := g.bus.Emit(events.PawnSelected{PawnID: pawnID}, true); err != nil {
		return false, err
	}
	return true, nil
}

// SelectCell places the selected pawn on behalf of the local player.
func (g *Game) SelectCell(cellID int) (bool, error) {
	if !g.IsState(SelectCell) || !g.IsMyTurn() || !board.ValidCellID(cellID) || g.IsCellOccupied(cellID) {
		return false, nil
	}
	if err := g.bus.Emit(events.CellSelected{Cell: g.layout.Cell(cellID)}, true); err != nil {
		return false, err
	}
	return true, nil
}

// Restart starts a new round, whatever the phase.
func (g *Game) Restart() error {
	return g.bus.Emit(events.RestartGame{}, true)
}

// ApplyRemote replays an event that the peer with id origin published.
// Pawn and cell selections from a peer that does not hold the turn are
// dropped.
func (g *Game) ApplyRemote(origin int, ev events.GameEvent) {
	switch ev.(type) {
	case events.PawnSelected, events.CellSelected:
		if origin != g.turnPlayerID {
			g.discard(ev, "peer does not hold the turn")
			return
		}
	case events.RestartGame:
	default:
		log.Warn().Str("type", fmt.Sprintf("%T", ev)).Msg("Ignoring unknown remote event")
		return
	}
	// not relayed, so Emit cannot fail
	_ = g.bus.Emit(g.transformRemote(ev), false)
}

// transformRemote resolves data the sender could not know, such as the
// geometry of a cell on this board.
func (g *Game) transformRemote(ev events.GameEvent) events.GameEvent {
	switch e := ev.(type) {
	case events.CellSelected:
		if board.ValidCellID(e.Cell.ID) {
			return events.CellSelected{Cell: g.layout.Cell(e.Cell.ID)}
		}
		return e
	case events.PawnSelected, events.RestartGame:
		return ev
	}
	return ev
}

func (g *Game) IsState(phase Phase) bool { return g.phase == phase }

func (g *Game) Phase() Phase { return g.phase }

func (g *Game) Kind() Kind { return g.kind }

// IsMyTurn reports whether the player holding the turn plays on this device.
func (g *Game) IsMyTurn() bool {
	return g.TurnPlayer().Kind == Local
}

func (g *Game) TurnPlayer() Player {
	return g.players[g.turnPlayerID]
}

func (g *Game) Players() [2]Player { return g.players }

func (g *Game) IsCellOccupied(cellID int) bool {
	return g.board.Occupied(cellID)
}

// SelectedPawn returns the pawn waiting to be placed.
func (g *Game) SelectedPawn() (board.Pawn, bool) {
	if g.selected == nil {
		return board.Pawn{}, false
	}
	return *g.selected, true
}

// Winner returns the winning player and line once the game is over.
func (g *Game) Winner() (Player, Line, bool) {
	if g.phase != GameOver || g.winner == nil {
		return Player{}, Line{}, false
	}
	return g.TurnPlayer(), *g.winner, true
}

// BoardConfig returns the geometry of the board surface.
func (g *Game) BoardConfig() board.Layout { return g.layout }

// Cell resolves the descriptor of a cell on this board.
func (g *Game) Cell(cellID int) board.CellConfig { return g.layout.Cell(cellID) }

func (g *Game) Pawns() [board.CellCount]board.Pawn { return g.pawns }

func (g *Game) BoardString() string { return g.board.String() }

// Session returns a snapshot of the game state.
func (g *Game) Session() Session {
	s := Session{
		Phase:            g.phase,
		TurnPlayerID:     g.turnPlayerID,
		StartingPlayerID: g.startingPlayerID,
		SelectedPawnID:   NoPawn,
		Kind:             g.kind,
	}
	if g.selected != nil {
		s.SelectedPawnID = g.selected.ID
	}
	for i, p := range g.board.Cells() {
		s.Cells[i] = NoPawn
		if p != nil {
			s.Cells[i] = p.ID
		}
	}
	return s
}
