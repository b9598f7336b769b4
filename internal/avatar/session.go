package avatar

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// State is the lifecycle state of a streaming session.
type State string

const (
	StateInactive   State = "inactive"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
)

// Session is a live connection to the streaming-avatar backend. It owns the
// lifecycle state and the event socket; handlers registered with On are
// invoked from the event pump goroutine.
type Session struct {
	client *Client
	token  string

	mu        sync.Mutex
	state     State
	sessionID string
	conn      *websocket.Conn
	stopCh    chan struct{}
	handlers  map[EventType][]Handler
}

func newSession(c *Client, token string) *Session {
	return &Session{
		client:   c,
		token:    token,
		state:    StateInactive,
		handlers: make(map[EventType][]Handler),
	}
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID returns the backend-assigned session id, empty before Start.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// On registers a handler for an event type. Registration must happen before
// Start; handlers run sequentially on the event pump goroutine.
func (s *Session) On(t EventType, h Handler) {
	s.mu.Lock()
	s.handlers[t] = append(s.handlers[t], h)
	s.mu.Unlock()
}

type newSessionResponse struct {
	Data struct {
		SessionID string `json:"session_id"`
	} `json:"data"`
}

// Start creates and starts a streaming session with the given configuration
// and opens the event socket. On failure the session drops back to inactive.
func (s *Session) Start(ctx context.Context, req StartRequest) error {
	s.mu.Lock()
	if s.state != StateInactive {
		s.mu.Unlock()
		return fmt.Errorf("session already %s", s.state)
	}
	s.state = StateConnecting
	s.mu.Unlock()

	err := s.start(ctx, req)
	if err != nil {
		s.mu.Lock()
		s.state = StateInactive
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.state = StateConnected
	s.mu.Unlock()
	return nil
}

func (s *Session) start(ctx context.Context, req StartRequest) error {
	var nr newSessionResponse
	if err := s.client.postJSON(ctx, "/v1/streaming.new", s.token, req, &nr); err != nil {
		return err
	}
	if nr.Data.SessionID == "" {
		return fmt.Errorf("heygen: empty session_id in response")
	}

	start := map[string]string{"session_id": nr.Data.SessionID}
	if err := s.client.postJSON(ctx, "/v1/streaming.start", s.token, start, nil); err != nil {
		return err
	}

	conn, err := s.dialEvents(ctx, nr.Data.SessionID)
	if err != nil {
		return err
	}

	stopCh := make(chan struct{})
	s.mu.Lock()
	s.sessionID = nr.Data.SessionID
	s.conn = conn
	s.stopCh = stopCh
	s.mu.Unlock()

	go s.readEvents(conn, stopCh)
	return nil
}

// dialEvents opens the event WebSocket for a started session.
func (s *Session) dialEvents(ctx context.Context, sessionID string) (*websocket.Conn, error) {
	wsBase := strings.Replace(s.client.BaseURL, "https://", "wss://", 1)
	wsBase = strings.Replace(wsBase, "http://", "ws://", 1)

	params := url.Values{}
	params.Set("session_id", sessionID)
	params.Set("session_token", s.token)
	wsURL := fmt.Sprintf("%s/v1/ws/streaming.chat?%s", wsBase, params.Encode())

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			log.Printf("avatar event socket failed with status: %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect avatar event socket: %w", err)
	}
	return conn, nil
}

// readEvents pumps socket frames into the registered handlers until the
// connection closes or Stop is called. The stop channel is passed in rather
// than read from the session, since Stop clears the field while the pump is
// still running.
func (s *Session) readEvents(conn *websocket.Conn, stopCh chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("recovered from panic in event pump: %v", r)
		}
	}()
	for {
		select {
		case <-stopCh:
			return
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stopCh:
			default:
				log.Printf("avatar event socket read error: %v", err)
				s.dispatch(Event{Type: EventStreamDisconnected})
			}
			return
		}
		s.dispatch(parseEvent(message))
	}
}

func (s *Session) dispatch(ev Event) {
	s.mu.Lock()
	hs := s.handlers[ev.Type]
	s.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

// Repeat asks the avatar to speak the given text verbatim.
func (s *Session) Repeat(ctx context.Context, text string) error {
	s.mu.Lock()
	id := s.sessionID
	s.mu.Unlock()
	if id == "" {
		return fmt.Errorf("session not started")
	}
	body := map[string]string{
		"session_id": id,
		"text":       text,
		"task_type":  "repeat",
	}
	return s.client.postJSON(ctx, "/v1/streaming.task", s.token, body, nil)
}

// StartVoiceChat enables the backend's built-in voice chat mode on the event
// socket, so user speech is transcribed upstream and surfaced as
// user_talking_message / user_end_message events.
func (s *Session) StartVoiceChat(_ context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("session not started")
	}
	return conn.WriteJSON(map[string]string{"type": "start_voice_chat"})
}

// Stop tears the session down. It is safe to call on an inactive session.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateInactive {
		s.mu.Unlock()
		return nil
	}
	id := s.sessionID
	conn := s.conn
	stopCh := s.stopCh
	s.state = StateInactive
	s.sessionID = ""
	s.conn = nil
	s.stopCh = nil
	s.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}
	if conn != nil {
		_ = conn.Close()
	}
	if id != "" {
		body := map[string]string{"session_id": id}
		if err := s.client.postJSON(ctx, "/v1/streaming.stop", s.token, body, nil); err != nil {
			return err
		}
	}
	return nil
}
