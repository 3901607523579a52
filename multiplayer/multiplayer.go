// Package multiplayer wires a game to its players: both on one device, or one
// on each of two devices sharing a document.
//
// Every call into a game, whether it comes from the local player or from the
// peer's document, runs on the session's dispatch goroutine.
package multiplayer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/cameroncuttingedge/tictacfour/docstore"
	"github.com/cameroncuttingedge/tictacfour/events"
	"github.com/cameroncuttingedge/tictacfour/game"
	"github.com/rs/zerolog/log"
)

var (
	ErrJoinFailed = errors.New("join failed")
	ErrClosed     = errors.New("session closed")
)

// PrimaryID and SecondaryID are the player ids of the session creator and
// the joiner.
const (
	PrimaryID   = 0
	SecondaryID = 1
)

const queueSize = 64

// Session runs a game and serializes every intent into it.
type Session struct {
	code  string
	local game.Player
	game  *game.Game

	queue chan func()
	stop  context.CancelFunc
	done  chan struct{}

	closeOnce   sync.Once
	unsubscribe func()
}

// newSession starts the dispatch goroutine. It outlives ctx and stops on
// Close.
func newSession(ctx context.Context, code string, local game.Player) *Session {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		code:  code,
		local: local,
		queue: make(chan func(), queueSize),
		stop:  cancel,
		done:  make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.queue:
			fn()
		}
	}
}

// submit queues fn on the dispatch goroutine.
func (s *Session) submit(fn func()) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.queue <- fn:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// call runs fn on the dispatch goroutine and waits for it.
func (s *Session) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := s.submit(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewPassAndPlay starts a game where both players share this device. The
// starting player is drawn at random.
func NewPassAndPlay(ctx context.Context, name1, name2 string, presenter game.Presenter) (*Session, error) {
	players := [2]game.Player{
		{ID: 0, Display: game.PlayerName(name1, 1), Kind: game.Local},
		{ID: 1, Display: game.PlayerName(name2, 2), Kind: game.Local},
	}
	return newPassAndPlay(ctx, players, rand.Intn(len(players)), presenter)
}

func newPassAndPlay(ctx context.Context, players [2]game.Player, starting int, presenter game.Presenter) (*Session, error) {
	relay := events.RelayFunc(func(ev events.GameEvent) error {
		log.Info().Str("event", string(ev.Name())).Msg("Pass and play event")
		return nil
	})
	g, err := game.NewGame(game.PassAndPlay, players, starting, game.WithRelay(relay), game.WithPresenter(presenter))
	if err != nil {
		return nil, err
	}

	s := newSession(ctx, "", players[starting])
	s.game = g
	if err := s.submit(g.Start); err != nil {
		return nil, err
	}
	return s, nil
}

// Host registers name as the creator of the session code and blocks until a
// second player joins or ctx is done. ctx bounds the setup only: the game
// runs until Close.
func Host(ctx context.Context, store docstore.Store, name, code string, presenter game.Presenter) (*Session, error) {
	if err := store.Set(ctx, code, docstore.Document{Primary: docstore.Name(name)}); err != nil {
		return nil, fmt.Errorf("register primary player: %w", err)
	}
	log.Info().Str("code", code).Str("player", name).Msg("Waiting for player to join")

	doc, err := waitForPlayerToJoin(ctx, store, code)
	if err != nil {
		return nil, err
	}

	local := game.Player{ID: PrimaryID, Display: *doc.Primary, Kind: game.Local}
	remote := game.Player{ID: SecondaryID, Display: *doc.Secondary, Kind: game.Remote}
	return playOnline(ctx, store, code, local, remote, presenter)
}

// waitForPlayerToJoin blocks until both names are in the document. The
// subscription is dropped the first time that happens.
func waitForPlayerToJoin(ctx context.Context, store docstore.Store, code string) (docstore.Document, error) {
	joined := make(chan docstore.Document, 1)
	var once sync.Once
	var unsubscribe func()
	ready := make(chan struct{})

	unsubscribe, err := store.Subscribe(ctx, code, func(doc docstore.Document) {
		if !doc.Joined() {
			return
		}
		once.Do(func() {
			<-ready
			unsubscribe()
			joined <- doc
		})
	})
	if err != nil {
		return docstore.Document{}, fmt.Errorf("wait for player to join: %w", err)
	}
	close(ready)

	select {
	case doc := <-joined:
		log.Info().Str("code", code).Str("player", *doc.Secondary).Msg("Player joined")
		return doc, nil
	case <-ctx.Done():
		once.Do(unsubscribe)
		return docstore.Document{}, ctx.Err()
	}
}

// Join registers name as the second player of an existing session. As with
// Host, ctx bounds the setup only.
func Join(ctx context.Context, store docstore.Store, name, code string, presenter game.Presenter) (*Session, error) {
	doc, err := store.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrJoinFailed, code, err)
	}
	if doc.Primary == nil || *doc.Primary == "" {
		return nil, fmt.Errorf("%w: %s has no host", ErrJoinFailed, code)
	}
	if doc.Secondary != nil && *doc.Secondary != "" {
		return nil, fmt.Errorf("%w: %s is full", ErrJoinFailed, code)
	}

	doc.Secondary = docstore.Name(name)
	doc.GameEvent = nil
	if err := store.Set(ctx, code, doc); err != nil {
		return nil, fmt.Errorf("register secondary player: %w", err)
	}

	local := game.Player{ID: SecondaryID, Display: name, Kind: game.Local}
	remote := game.Player{ID: PrimaryID, Display: *doc.Primary, Kind: game.Remote}
	return playOnline(ctx, store, code, local, remote, presenter)
}

func playOnline(ctx context.Context, store docstore.Store, code string, local, remote game.Player, presenter game.Presenter) (*Session, error) {
	s := newSession(ctx, code, local)
	names := [2]string{}
	names[local.ID] = local.Display
	names[remote.ID] = remote.Display

	relay := events.RelayFunc(func(ev events.GameEvent) error {
		env, err := events.Wrap(ev)
		if err != nil {
			return err
		}
		doc := docstore.Document{
			Primary:   docstore.Name(names[PrimaryID]),
			Secondary: docstore.Name(names[SecondaryID]),
			GameEvent: env,
			PlayerID:  local.ID,
		}
		return store.Set(context.Background(), code, doc)
	})

	g, err := game.NewGame(game.Online, [2]game.Player{remote, local}, PrimaryID,
		game.WithRelay(relay), game.WithPresenter(presenter))
	if err != nil {
		s.Close()
		return nil, err
	}
	s.game = g

	unsubscribe, err := store.Subscribe(ctx, code, s.onDocument)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", code, err)
	}
	s.unsubscribe = unsubscribe

	if err := s.submit(g.Start); err != nil {
		s.Close()
		return nil, err
	}
	log.Info().Str("code", code).Int("playerID", local.ID).Msg("Online game started")
	return s, nil
}

// onDocument queues the peer's intent. Documents this device wrote are
// skipped: replaying them would apply every local move twice.
func (s *Session) onDocument(doc docstore.Document) {
	if doc.GameEvent == nil || doc.PlayerID == s.local.ID {
		return
	}
	ev, err := doc.GameEvent.Event()
	if err != nil {
		log.Error().Err(err).Str("code", s.code).Msg("Dropping undecodable game event")
		return
	}
	origin := doc.PlayerID
	if err := s.submit(func() { s.game.ApplyRemote(origin, ev) }); err != nil {
		log.Debug().Err(err).Str("code", s.code).Msg("Dropping remote game event")
	}
}

// SelectPawn runs a pawn pick by the local player. An intent the game does
// not accept is ignored; an error means it could not reach the peer and the
// game is unchanged.
func (s *Session) SelectPawn(pawnID int) error {
	return s.intent(func() error {
		_, err := s.game.SelectPawn(pawnID)
		return err
	})
}

// SelectCell runs a pawn placement by the local player.
func (s *Session) SelectCell(cellID int) error {
	return s.intent(func() error {
		_, err := s.game.SelectCell(cellID)
		return err
	})
}

// Restart starts a new round on both devices.
func (s *Session) Restart() error {
	return s.intent(s.game.Restart)
}

func (s *Session) intent(fn func() error) error {
	var err error
	if callErr := s.call(context.Background(), func() { err = fn() }); callErr != nil {
		return callErr
	}
	return err
}

// Snapshot reads the game state once every intent queued before it ran.
func (s *Session) Snapshot(ctx context.Context) (game.Session, error) {
	var snap game.Session
	err := s.call(ctx, func() { snap = s.game.Session() })
	return snap, err
}

// Do runs fn against the game on the dispatch goroutine.
func (s *Session) Do(ctx context.Context, fn func(g *game.Game)) error {
	return s.call(ctx, func() { fn(s.game) })
}

func (s *Session) Code() string { return s.code }

// LocalPlayer returns the player on this device. In pass-and-play it is the
// starting player.
func (s *Session) LocalPlayer() game.Player { return s.local }

// Close stops the dispatch goroutine and drops the document subscription.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.stop()
		<-s.done
	})
}
