package feed

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/xrparb/core/internal/domain"
	"github.com/xrparb/core/internal/spin"
)

const (
	backoffBase = 1 * time.Second
	backoffCap  = 60 * time.Second
)

// dialFunc opens the transport connection for one venue; separated from
// session so venue clients can stub it in tests without a live socket.
type dialFunc func() (*websocket.Conn, error)

// subscribeFunc sends the venue's subscription payload(s) once the
// session handshake has completed.
type subscribeFunc func(*websocket.Conn) error

// readFunc decodes one inbound frame into zero or more Events, emitting
// them via emit. It returns an error only for a transport-level failure
// (spec.md §4.2: "Parse failures never kill the session; only
// transport-level errors do" — decode errors must be swallowed inside
// readFunc itself, counted, and not returned here).
type readFunc func(data []byte, emit func(Event)) error

// session is the reconnect/backoff state machine shared by all four
// venue clients (spec.md §4.2). Each venue client embeds one and
// supplies its own dial/subscribe/read functions.
type session struct {
	venue domain.Venue
	log   zerolog.Logger

	dial      dialFunc
	subscribe subscribeFunc
	read      readFunc

	queue    EventQueue
	listener Listener

	mu            sync.RWMutex
	conn          *websocket.Conn
	state         SessionState
	shouldReconnect atomic.Bool

	decodeErrors atomic.Int64
	closeCh      chan struct{}
	closeOnce    sync.Once
}

func newSession(venue domain.Venue, log zerolog.Logger, dial dialFunc, subscribe subscribeFunc, read readFunc) *session {
	return &session{
		venue:     venue,
		log:       log.With().Str("venue", venue.String()).Logger(),
		dial:      dial,
		subscribe: subscribe,
		read:      read,
		closeCh:   make(chan struct{}),
	}
}

func (s *session) setState(st SessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *session) emit(ev Event) {
	ev.Venue = s.venue
	ev.At = time.Now()
	if s.listener != nil {
		s.listener(ev)
		return
	}
	if s.queue != nil {
		s.queue.Push(ev) // a full queue drops the event; spec.md §4.1 control signal
	}
}

// run drives the connect -> subscribe -> read -> (on failure) reconnect
// loop until Stop clears shouldReconnect. It is meant to be started in
// its own goroutine by the venue client's Start.
func (s *session) run() {
	backoff := spin.NewBackoff(backoffBase, backoffCap)
	s.shouldReconnect.Store(true)

	for s.shouldReconnect.Load() {
		if err := s.connectOnce(); err != nil {
			s.emit(Event{Kind: EventError, Err: err})
			delay := backoff.Next()
			s.log.Warn().Err(err).Dur("backoff", delay).Msg("feed session failed, reconnecting")
			select {
			case <-time.After(delay):
			case <-s.closeCh:
				return
			}
			continue
		}
		backoff.Reset()
		s.readLoop() // returns on transport error or Stop

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		s.setState(StateDisconnected)
		s.emit(Event{Kind: EventDisconnected})

		if !s.shouldReconnect.Load() {
			return
		}
	}
}

func (s *session) connectOnce() error {
	s.setState(StateResolving)
	s.setState(StateConnecting)
	conn, err := s.dial()
	if err != nil {
		return domain.WrapError(domain.ErrConnectionFailed, "dial "+s.venue.String(), err)
	}
	s.setState(StateTLSHandshaking)
	s.setState(StateSessionHandshaking)

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.setState(StateSubscribing)
	if err := s.subscribe(conn); err != nil {
		conn.Close()
		return domain.WrapError(domain.ErrConnectionFailed, "subscribe "+s.venue.String(), err)
	}

	s.setState(StateConnected)
	s.emit(Event{Kind: EventConnected})
	return nil
}

func (s *session) readLoop() {
	for {
		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if !s.shouldReconnect.Load() {
				return // Stop already closed the socket; not a failure
			}
			s.log.Warn().Err(err).Msg("feed transport read error")
			return
		}

		if err := s.read(data, s.emit); err != nil {
			// transport-level error surfaced by the venue's readFunc
			// (e.g. a protocol violation it cannot recover from inline)
			s.log.Error().Err(err).Msg("feed transport decode error")
			return
		}
	}
}

// Start spawns the connect/subscribe/read/reconnect loop in its own
// goroutine and returns immediately; the first Connected event (or a
// string of Error events while backing off) follows asynchronously on
// the queue or listener.
func (s *session) Start() error {
	go s.run()
	return nil
}

// Venue identifies which of the four venues this session serves.
func (s *session) Venue() domain.Venue {
	return s.venue
}

// Stop disarms reconnection and closes the active socket, if any.
func (s *session) Stop() {
	s.shouldReconnect.Store(false)
	s.closeOnce.Do(func() { close(s.closeCh) })

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		s.setState(StateClosing)
		conn.Close()
	}
	s.setState(StateDisconnected)
}

// DecodeErrors reports how many inbound frames failed to decode and
// were dropped, per spec.md §4.2's "a counter increments and the
// message is dropped".
func (s *session) DecodeErrors() int64 {
	return s.decodeErrors.Load()
}

func (s *session) countDecodeError() {
	s.decodeErrors.Add(1)
}
