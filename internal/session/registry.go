package session

import "sync"

// Registry holds one Orchestrator per page session id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Orchestrator
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Orchestrator)}
}

// GetOrCreate returns the orchestrator for id, constructing it on first use.
func (r *Registry) GetOrCreate(id string, create func() *Orchestrator) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.sessions[id]; ok {
		return o
	}
	o := create()
	r.sessions[id] = o
	return o
}

// Get returns the orchestrator for id when one exists.
func (r *Registry) Get(id string) (*Orchestrator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.sessions[id]
	return o, ok
}

// Remove tears down and forgets the orchestrator for id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	o, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		o.Close()
	}
}

// ChanSource is a CaptureSource fed by Push, used by the WebSocket ingest.
type ChanSource struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

func NewChanSource() *ChanSource {
	return &ChanSource{ch: make(chan []byte, 64)}
}

// Push queues one audio fragment. Fragments pushed after Close are dropped.
func (s *ChanSource) Push(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- chunk:
	default:
		// drop rather than stall the ingest socket
	}
}

func (s *ChanSource) Chunks() <-chan []byte { return s.ch }

func (s *ChanSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}
