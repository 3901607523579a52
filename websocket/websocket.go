package websocket

import (
	"net/http"
	"sync"

	"github.com/cameroncuttingedge/tictacfour/docstore"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // Allow connections from any origin
}

// connection is one websocket subscribed to a session document.
type connection struct {
	code string
	conn *websocket.Conn
	send chan docstore.Document
	done chan struct{}
}

func newConnection(code string) *connection {
	return &connection{
		code: code,
		send: make(chan docstore.Document, 16),
		done: make(chan struct{}),
	}
}

// deliver queues doc for this connection. It blocks only the store
// subscription of this connection, and gives up once the socket is gone.
func (c *connection) deliver(doc docstore.Document) {
	select {
	case c.send <- doc:
	case <-c.done:
	}
}

// Hub streams document changes to the websockets watching each session.
// Every connection is written by its own handler goroutine.
type Hub struct {
	store docstore.Store

	lock               sync.Mutex
	sessionConnections map[string][]*connection
}

func NewHub(store docstore.Store) *Hub {
	return &Hub{
		store:              store,
		sessionConnections: make(map[string][]*connection),
	}
}

// SessionWebSocketHandler upgrades the request and streams the session
// document: the current version first, then every write.
func (h *Hub) SessionWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code, ok := vars["code"]
	if !ok {
		http.Error(w, "Session code is required", http.StatusBadRequest)
		return
	}

	// Subscribe before the upgrade so no write between the handshake and the
	// subscription is lost.
	c := newConnection(code)
	unsubscribe, err := h.store.Subscribe(r.Context(), code, c.deliver)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("Failed to subscribe to session")
		http.Error(w, "Failed to subscribe to session", http.StatusInternalServerError)
		return
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("WebSocket upgrade error")
		close(c.done)
		return
	}
	c.conn = conn

	h.registerConnection(c)
	log.Info().Str("code", code).Int("connectionsCount", h.ConnectionCount(code)).Msg("WebSocket connection established and registered")

	go h.readLoop(c)
	h.writeLoop(c)

	conn.Close()
	h.deregisterConnection(c)
	h.logAllConnections()
}

// readLoop waits for the peer to go away. Clients never send documents on
// the socket.
func (h *Hub) readLoop(c *connection) {
	defer close(c.done)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Str("code", c.code).Msg("WebSocket closed unexpectedly")
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *connection) {
	for {
		select {
		case <-c.done:
			return
		case doc := <-c.send:
			if err := c.conn.WriteJSON(doc); err != nil {
				log.Error().Err(err).Str("code", c.code).Msg("Failed to send session document")
				return
			}
			log.Debug().Str("code", c.code).Int("playerID", doc.PlayerID).Msg("Sent session document")
		}
	}
}

func (h *Hub) registerConnection(c *connection) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.sessionConnections[c.code] = append(h.sessionConnections[c.code], c)
	log.Info().Str("code", c.code).Msg("New WebSocket connection registered")
}

func (h *Hub) deregisterConnection(c *connection) {
	h.lock.Lock()
	defer h.lock.Unlock()
	connections := h.sessionConnections[c.code]
	for i, other := range connections {
		if other == c {
			h.sessionConnections[c.code] = append(connections[:i:i], connections[i+1:]...)
			log.Info().Str("code", c.code).Int("remainingConnections", len(h.sessionConnections[c.code])).Msg("WebSocket connection deregistered")
			break
		}
	}
	if len(h.sessionConnections[c.code]) == 0 {
		delete(h.sessionConnections, c.code)
	}
}

// ConnectionCount returns the number of websockets watching code.
func (h *Hub) ConnectionCount(code string) int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.sessionConnections[code])
}

func (h *Hub) logAllConnections() {
	h.lock.Lock()
	defer h.lock.Unlock()
	if len(h.sessionConnections) == 0 {
		log.Info().Msg("No active WebSocket connections for any session")
		return
	}
	for code, conns := range h.sessionConnections {
		addrs := make([]string, 0, len(conns))
		for _, c := range conns {
			if c.conn != nil {
				addrs = append(addrs, c.conn.RemoteAddr().String())
			}
		}
		log.Info().Str("code", code).Strs("connections", addrs).Msg("Current WebSocket connections")
	}
}
