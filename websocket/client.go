package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cameroncuttingedge/tictacfour/docstore"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Client is a docstore.Store backed by a remote server: HTTP for reads and
// writes, a websocket per subscription.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
}

var _ docstore.Store = (*Client)(nil)

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		dialer:  websocket.DefaultDialer,
	}
}

// SessionInfo is the response to a session creation.
type SessionInfo struct {
	Code     string `json:"code"`
	JoinLink string `json:"joinLink"`
}

// CreateSession asks the server for a new session code.
func (c *Client) CreateSession(ctx context.Context) (SessionInfo, error) {
	var info SessionInfo
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", nil)
	if err != nil {
		return info, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return info, fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return info, statusError("create session", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return info, fmt.Errorf("decode session: %w", err)
	}
	return info, nil
}

func (c *Client) Get(ctx context.Context, code string) (docstore.Document, error) {
	var doc docstore.Document
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sessionURL(code), nil)
	if err != nil {
		return doc, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return doc, fmt.Errorf("get session %s: %w", code, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return doc, docstore.ErrNotFound
	default:
		return doc, statusError("get session "+code, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return doc, fmt.Errorf("decode session %s: %w", code, err)
	}
	return doc, nil
}

func (c *Client) Set(ctx context.Context, code string, doc docstore.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", code, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.sessionURL(code), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("set session %s: %w", code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return statusError("set session "+code, resp)
	}
	return nil
}

// Subscribe opens a websocket on the session. fn runs on the reading
// goroutine, one document at a time. When the connection drops the client
// redials until unsubscribed; the server sends the current document again
// on every connection.
func (c *Client) Subscribe(ctx context.Context, code string, fn func(docstore.Document)) (func(), error) {
	wsURL, err := c.websocketURL(code)
	if err != nil {
		return nil, err
	}
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("subscribe to session %s: %w", code, err)
	}

	sub := &subscription{code: code, url: wsURL, dialer: c.dialer, fn: fn, conn: conn, closing: make(chan struct{})}
	go sub.run()
	return sub.unsubscribe, nil
}

const (
	minRedialDelay = 100 * time.Millisecond
	maxRedialDelay = 5 * time.Second
)

type subscription struct {
	code   string
	url    string
	dialer *websocket.Dialer
	fn     func(docstore.Document)

	mu      sync.Mutex
	conn    *websocket.Conn
	closing chan struct{}
	once    sync.Once
}

func (s *subscription) unsubscribe() {
	s.once.Do(func() {
		close(s.closing)
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
}

func (s *subscription) closed() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

func (s *subscription) run() {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()

		err := s.read(conn)
		if s.closed() {
			return
		}
		conn.Close()
		log.Warn().Err(err).Str("code", s.code).Msg("Session subscription dropped, redialing")
		if !s.redial() {
			return
		}
	}
}

func (s *subscription) read(conn *websocket.Conn) error {
	for {
		var doc docstore.Document
		if err := conn.ReadJSON(&doc); err != nil {
			return err
		}
		if s.closed() {
			return nil
		}
		s.fn(doc)
	}
}

// redial reconnects with a doubling delay. It returns false once the
// subscription is closed.
func (s *subscription) redial() bool {
	delay := minRedialDelay
	for {
		select {
		case <-s.closing:
			return false
		case <-time.After(delay):
		}

		conn, _, err := s.dialer.Dial(s.url, nil)
		if err == nil {
			s.mu.Lock()
			s.conn = conn
			s.mu.Unlock()
			if s.closed() {
				// unsubscribe may have closed the previous connection only
				conn.Close()
				return false
			}
			log.Info().Str("code", s.code).Msg("Session subscription restored")
			return true
		}
		log.Error().Err(err).Str("code", s.code).Dur("retryIn", delay).Msg("Failed to redial session")

		if delay < maxRedialDelay {
			delay *= 2
			if delay > maxRedialDelay {
				delay = maxRedialDelay
			}
		}
	}
}

func (c *Client) sessionURL(code string) string {
	return c.baseURL + "/sessions/" + url.PathEscape(code)
}

func (c *Client) websocketURL(code string) (string, error) {
	u, err := url.Parse(c.baseURL + "/ws/sessions/" + url.PathEscape(code))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u.String(), nil
}

var ErrUnexpectedStatus = errors.New("unexpected status")

func statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: %w %d: %s", op, ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
}
