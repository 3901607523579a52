// Package docstore holds the shared documents online peers synchronize
// through. A document is addressed by a session code and is overwritten on
// every write; the last write wins.
package docstore

import (
	"context"
	"errors"
	"sync"

	"github.com/cameroncuttingedge/tictacfour/events"
)

var ErrNotFound = errors.New("session not found")

// Document is the shared state of an online session.
type Document struct {
	Primary   *string          `json:"primary"`   // display name of the session creator
	Secondary *string          `json:"secondary"` // display name of the joiner
	GameEvent *events.Envelope `json:"gameEvent"` // last published intent
	PlayerID  int              `json:"playerId"`  // origin of GameEvent
}

// Joined reports whether both participants are registered.
func (d Document) Joined() bool {
	return d.Primary != nil && *d.Primary != "" && d.Secondary != nil && *d.Secondary != ""
}

// Name returns a pointer to name, for filling Document fields.
func Name(name string) *string {
	return &name
}

// Store is the remote document collaborator.
type Store interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, code string) (Document, error)
	// Set overwrites the document.
	Set(ctx context.Context, code string, doc Document) error
	// Subscribe calls fn with the current document, if any, and then with
	// every later write in write order until unsubscribe is called.
	Subscribe(ctx context.Context, code string, fn func(Document)) (unsubscribe func(), err error)
}

// subscriber delivers documents to one listener from its own goroutine, so a
// slow listener never blocks a writer and sees writes in order.
type subscriber struct {
	id int
	fn func(Document)

	mu    sync.Mutex
	queue []Document
	wake  chan struct{}
	done  chan struct{}
}

func (sub *subscriber) push(doc Document) {
	sub.mu.Lock()
	sub.queue = append(sub.queue, doc)
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *subscriber) next() (Document, bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if len(sub.queue) == 0 {
		return Document{}, false
	}
	doc := sub.queue[0]
	sub.queue = sub.queue[1:]
	return doc, true
}

func (sub *subscriber) run() {
	for {
		select {
		case <-sub.done:
			return
		case <-sub.wake:
		}
		for {
			select {
			case <-sub.done:
				return
			default:
			}
			doc, ok := sub.next()
			if !ok {
				break
			}
			sub.fn(doc)
		}
	}
}

// subscribers keeps the change listeners of each session. Callers hold their
// store lock around add and publish so deliveries follow write order.
type subscribers struct {
	mu     sync.Mutex
	nextID int
	byCode map[string][]*subscriber
}

func newSubscribers() *subscribers {
	return &subscribers{byCode: make(map[string][]*subscriber)}
}

func (s *subscribers) add(code string, fn func(Document)) (*subscriber, func()) {
	s.mu.Lock()
	s.nextID++
	sub := &subscriber{
		id:   s.nextID,
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	s.byCode[code] = append(s.byCode[code], sub)
	s.mu.Unlock()

	go sub.run()

	var once sync.Once
	return sub, func() {
		once.Do(func() {
			s.remove(code, sub.id)
			close(sub.done)
		})
	}
}

func (s *subscribers) remove(code string, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.byCode[code]
	for i, sub := range subs {
		if sub.id == id {
			s.byCode[code] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(s.byCode[code]) == 0 {
		delete(s.byCode, code)
	}
}

func (s *subscribers) count(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byCode[code])
}

func (s *subscribers) publish(code string, doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.byCode[code] {
		sub.push(doc)
	}
}
