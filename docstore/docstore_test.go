package docstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameroncuttingedge/tictacfour/events"
)

type collector struct {
	mu   sync.Mutex
	docs []Document
}

func (c *collector) add(doc Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append(c.docs, doc)
}

func (c *collector) all() []Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Document(nil), c.docs...)
}

func eventDoc(t *testing.T, playerID, pawnID int) Document {
	t.Helper()
	env, err := events.Wrap(events.PawnSelected{PawnID: pawnID})
	require.NoError(t, err)
	return Document{Primary: Name("Tima"), Secondary: Name("Hermione"), GameEvent: env, PlayerID: playerID}
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set overwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "abcd", Document{Primary: Name("Tima")}))
		require.NoError(t, s.Set(ctx, "abcd", eventDoc(t, 1, 3)))

		doc, err := s.Get(ctx, "abcd")
		require.NoError(t, err)
		assert.Equal(t, 1, doc.PlayerID)
		assert.True(t, doc.Joined())
		ev, err := doc.GameEvent.Event()
		require.NoError(t, err)
		assert.Equal(t, events.PawnSelected{PawnID: 3}, ev)
	})

	t.Run("subscribe delivers current then writes in order", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "abcd", Document{Primary: Name("Tima")}))

		var got collector
		unsubscribe, err := s.Subscribe(ctx, "abcd", got.add)
		require.NoError(t, err)
		defer unsubscribe()

		for i := 0; i < 10; i++ {
			require.NoError(t, s.Set(ctx, "abcd", eventDoc(t, i%2, i)))
		}

		require.Eventually(t, func() bool { return len(got.all()) == 11 }, 2*time.Second, 10*time.Millisecond)
		docs := got.all()
		assert.Nil(t, docs[0].GameEvent)
		for i, doc := range docs[1:] {
			ev, err := doc.GameEvent.Event()
			require.NoError(t, err)
			assert.Equal(t, events.PawnSelected{PawnID: i}, ev)
		}
	})

	t.Run("subscribe before the document exists", func(t *testing.T) {
		s := newStore(t)
		var got collector
		unsubscribe, err := s.Subscribe(ctx, "later", got.add)
		require.NoError(t, err)
		defer unsubscribe()

		require.NoError(t, s.Set(ctx, "later", Document{Primary: Name("Tima")}))
		require.Eventually(t, func() bool { return len(got.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("unsubscribe stops deliveries", func(t *testing.T) {
		s := newStore(t)
		var got collector
		unsubscribe, err := s.Subscribe(ctx, "abcd", got.add)
		require.NoError(t, err)

		require.NoError(t, s.Set(ctx, "abcd", Document{Primary: Name("Tima")}))
		require.Eventually(t, func() bool { return len(got.all()) == 1 }, 2*time.Second, 10*time.Millisecond)

		unsubscribe()
		unsubscribe()
		require.NoError(t, s.Set(ctx, "abcd", Document{Primary: Name("Tima"), Secondary: Name("Hermione")}))
		time.Sleep(50 * time.Millisecond)
		assert.Len(t, got.all(), 1)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		s := newStore(t)
		var got collector
		unsubscribe, err := s.Subscribe(ctx, "one", got.add)
		require.NoError(t, err)
		defer unsubscribe()

		require.NoError(t, s.Set(ctx, "two", Document{Primary: Name("Tima")}))
		time.Sleep(50 * time.Millisecond)
		assert.Empty(t, got.all())
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "docs.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "docs.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "abcd", eventDoc(t, 0, 9)))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	doc, err := s.Get(ctx, "abcd")
	require.NoError(t, err)
	assert.Equal(t, "Tima", *doc.Primary)
	ev, err := doc.GameEvent.Event()
	require.NoError(t, err)
	assert.Equal(t, events.PawnSelected{PawnID: 9}, ev)
}

func TestMemoryStoreSubscriberCount(t *testing.T) {
	s := NewMemoryStore()
	unsubscribe, err := s.Subscribe(context.Background(), "abcd", func(Document) {})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Subscribers("abcd"))

	unsubscribe()
	assert.Equal(t, 0, s.Subscribers("abcd"))
}

func TestUnsubscribeFromCallback(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	calls := make(chan Document, 4)
	var unsubscribe func()
	var ready sync.WaitGroup
	ready.Add(1)
	unsubscribe, err := s.Subscribe(ctx, "abcd", func(doc Document) {
		ready.Wait()
		calls <- doc
		if doc.Joined() {
			unsubscribe()
		}
	})
	require.NoError(t, err)
	ready.Done()

	require.NoError(t, s.Set(ctx, "abcd", Document{Primary: Name("Tima"), Secondary: Name("Hermione")}))
	<-calls
	require.Eventually(t, func() bool { return s.Subscribers("abcd") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestDocumentJoined(t *testing.T) {
	assert.False(t, Document{}.Joined())
	assert.False(t, Document{Primary: Name("Tima")}.Joined())
	assert.False(t, Document{Primary: Name("Tima"), Secondary: Name("")}.Joined())
	assert.True(t, Document{Primary: Name("Tima"), Secondary: Name("Hermione")}.Joined())
}
