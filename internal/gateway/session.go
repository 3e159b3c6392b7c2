// Package gateway maintains the realtime session with the chat platform:
// handshake, heartbeating, sequence tracking and dispatch of events.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/cpbot/internal/discord"
	"github.com/soyeahso/cpbot/internal/dispatch"
	"github.com/soyeahso/cpbot/internal/logging"
	"github.com/soyeahso/cpbot/internal/metrics"
)

var (
	ErrReconnectRequested = errors.New("gateway requested reconnect")
	ErrInvalidSession     = errors.New("gateway invalidated the session")
	ErrStreamEnded        = errors.New("gateway closed the connection")
	ErrAlreadyStarted     = errors.New("session already started")
)

// State is the lifecycle position of a Session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingHello
	StateIdentifying
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingHello:
		return "awaiting_hello"
	case StateIdentifying:
		return "identifying"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// SessionError is the fatal error that ends Run.
type SessionError struct {
	State State // state the session was in when it failed
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("gateway session failed while %s: %v", e.State, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// GatewayLocator resolves the websocket URL. *discord.Client implements it.
type GatewayLocator interface {
	Gateway(ctx context.Context) (string, error)
}

// SessionConfig holds the identity and tuning of a session.
type SessionConfig struct {
	Token               string
	OS                  string
	Activity            string
	GatewayVersion      int
	ConnectTimeout      time.Duration
	RequireHeartbeatAck bool
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithMetrics records frame, heartbeat and state metrics.
func WithMetrics(m *metrics.Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// Session is one connection lifetime with the gateway. It does not reconnect;
// a fatal error ends Run and the process is expected to be restarted.
type Session struct {
	cfg      SessionConfig
	locator  GatewayLocator
	dialer   Dialer
	registry *dispatch.Registry
	log      *logging.Logger
	metrics  *metrics.Metrics

	started atomic.Bool

	mu             sync.RWMutex
	state          State
	selfUser       *discord.User
	sessionID      string
	lastSeq        *int64
	connectedSince time.Time
	connID         string
	heartbeater    *Heartbeater
}

// NewSession creates a session in the Disconnected state.
func NewSession(cfg SessionConfig, locator GatewayLocator, dialer Dialer, registry *dispatch.Registry, log *logging.Logger, opts ...SessionOption) *Session {
	if cfg.OS == "" {
		cfg.OS = runtime.GOOS
	}
	if cfg.GatewayVersion <= 0 {
		cfg.GatewayVersion = 6
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	s := &Session{
		cfg:      cfg,
		locator:  locator,
		dialer:   dialer,
		registry: registry,
		log:      log.Sub("session"),
		state:    StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// connection is the per-socket state shared by the read loop and heartbeater.
type connection struct {
	tr    Transport
	hbErr chan error
	hbWG  sync.WaitGroup
}

// Run connects, identifies and processes frames until the connection fails or
// ctx is cancelled. It always returns a non-nil error: ctx.Err() on
// cancellation, otherwise a *SessionError. A Session can run only once.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	err := s.run(ctx)
	s.setState(StateClosed)
	if ctx.Err() != nil {
		s.log.Info().Msg("session stopped")
		return ctx.Err()
	}
	s.log.Error().Err(err).Msg("session closed")
	return err
}

func (s *Session) run(ctx context.Context) error {
	s.setState(StateConnecting)

	base, err := s.locator.Gateway(ctx)
	if err != nil {
		return s.fail(fmt.Errorf("fetching gateway url: %w", err))
	}
	wsURL, err := gatewayURL(base, s.cfg.GatewayVersion)
	if err != nil {
		return s.fail(err)
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	tr, err := s.dialer.Dial(dialCtx, wsURL)
	cancelDial()
	if err != nil {
		return s.fail(fmt.Errorf("connecting: %w", err))
	}

	s.mu.Lock()
	s.connectedSince = time.Now()
	s.connID = uuid.New().String()
	s.mu.Unlock()
	s.log.Info().Str("url", wsURL).Str("connId", s.ConnID()).Msg("connected")
	s.setState(StateAwaitingHello)

	ctx, cancel := context.WithCancel(ctx)
	conn := &connection{tr: tr, hbErr: make(chan error, 1)}
	defer func() {
		cancel()
		tr.Close()
		conn.hbWG.Wait()
	}()

	go func() {
		<-ctx.Done()
		tr.Close()
	}()

	for {
		data, err := tr.ReadMessage()
		if err != nil {
			select {
			case hbErr := <-conn.hbErr:
				return s.fail(hbErr)
			default:
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if isNormalClose(err) {
				return s.fail(fmt.Errorf("%w: %v", ErrStreamEnded, err))
			}
			return s.fail(fmt.Errorf("reading frame: %w", err))
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			s.log.Warn().Err(err).Int("bytes", len(data)).Msg("dropping malformed frame")
			continue
		}
		if err := s.handleFrame(ctx, conn, frame); err != nil {
			return s.fail(err)
		}
	}
}

func (s *Session) handleFrame(ctx context.Context, conn *connection, frame Frame) error {
	s.metrics.RecordFrame(frame.Op.String())
	if frame.S != nil {
		s.observeSequence(*frame.S)
	}

	switch frame.Op {
	case OpHello:
		return s.handleHello(ctx, conn, frame)

	case OpHeartbeatAck:
		if hb := s.currentHeartbeater(); hb != nil {
			hb.Ack()
		}
		s.log.Trace().Msg("heartbeat acknowledged")

	case OpHeartbeat:
		// The server may ask for a heartbeat out of schedule.
		if hb := s.currentHeartbeater(); hb != nil {
			if err := hb.Beat(); err != nil {
				return err
			}
		}

	case OpDispatch:
		s.handleDispatch(ctx, frame)

	case OpReconnect:
		return ErrReconnectRequested

	case OpInvalidSession:
		return ErrInvalidSession

	default:
		s.log.Warn().Int("op", int(frame.Op)).Msg("unhandled opcode")
	}
	return nil
}

func (s *Session) handleHello(ctx context.Context, conn *connection, frame Frame) error {
	if s.State() != StateAwaitingHello {
		s.log.Warn().Str("state", s.State().String()).Msg("ignoring unexpected hello")
		return nil
	}

	var hello Hello
	if err := frame.Decode(&hello); err != nil {
		s.log.Warn().Err(err).Msg("dropping malformed hello")
		return nil
	}
	if hello.HeartbeatInterval <= 0 {
		s.log.Warn().Int64("interval", hello.HeartbeatInterval).Msg("dropping hello with invalid heartbeat interval")
		return nil
	}
	interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond
	s.log.Debug().Dur("heartbeatInterval", interval).Msg("hello received")

	identify, err := EncodeFrame(OpIdentify, NewIdentify(s.cfg.Token, s.cfg.OS, s.cfg.Activity))
	if err != nil {
		return err
	}
	if err := conn.tr.WriteMessage(identify); err != nil {
		return fmt.Errorf("sending identify: %w", err)
	}
	s.setState(StateIdentifying)

	hb := NewHeartbeater(interval, s.sequence, conn.tr.WriteMessage, s.cfg.RequireHeartbeatAck, s.log.Sub("heartbeat"), s.metrics)
	s.mu.Lock()
	s.heartbeater = hb
	s.mu.Unlock()

	conn.hbWG.Add(1)
	go func() {
		defer conn.hbWG.Done()
		if err := hb.Run(ctx); err != nil {
			conn.hbErr <- err
			conn.tr.Close()
		}
	}()
	return nil
}

func (s *Session) handleDispatch(ctx context.Context, frame Frame) {
	if frame.T == "" {
		s.log.Warn().Msg("dispatch frame without event type")
		return
	}

	if frame.T == EventReady {
		var ready Ready
		if err := frame.Decode(&ready); err != nil {
			s.log.Warn().Err(err).Msg("malformed READY payload")
		} else {
			s.mu.Lock()
			s.selfUser = &ready.User
			s.sessionID = ready.SessionID
			s.mu.Unlock()
			s.setState(StateActive)
			s.log.Info().
				Str("user", ready.User.Tag()).
				Str("userId", ready.User.ID).
				Msg("session ready")
		}
	}

	// Handlers outlive the session; they are not cancelled when it closes.
	n := s.registry.Dispatch(context.WithoutCancel(ctx), frame.T, frame.D)
	s.log.Trace().Str("event", frame.T).Int("handlers", n).Msg("dispatched")
}

func (s *Session) observeSequence(seq int64) {
	s.mu.Lock()
	if s.lastSeq == nil || seq > *s.lastSeq {
		v := seq
		s.lastSeq = &v
	}
	current := *s.lastSeq
	s.mu.Unlock()
	s.metrics.SetLastSequence(current)
}

// sequence returns a copy of the last sequence, or nil before the first one.
func (s *Session) sequence() *int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSeq == nil {
		return nil
	}
	v := *s.lastSeq
	return &v
}

func (s *Session) currentHeartbeater() *Heartbeater {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.heartbeater
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()
	s.metrics.SetSessionState(int(state))
	if prev != state {
		s.log.Debug().Str("from", prev.String()).Str("to", state.String()).Msg("state change")
	}
}

func (s *Session) fail(err error) error {
	return &SessionError{State: s.State(), Err: err}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SelfUser returns the bot's own user from READY, or nil before it.
func (s *Session) SelfUser() *discord.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selfUser == nil {
		return nil
	}
	u := *s.selfUser
	return &u
}

// LastSequence returns the highest sequence seen and whether any was seen.
func (s *Session) LastSequence() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSeq == nil {
		return 0, false
	}
	return *s.lastSeq, true
}

// ConnectedSince returns when the socket connected; zero before that.
func (s *Session) ConnectedSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectedSince
}

// ConnID identifies the current connection in logs.
func (s *Session) ConnID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connID
}

// SessionID returns the platform session id from READY.
func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// HeartbeatsSent returns the number of heartbeats sent on this connection.
func (s *Session) HeartbeatsSent() int64 {
	if hb := s.currentHeartbeater(); hb != nil {
		return hb.Sent()
	}
	return 0
}

func gatewayURL(base string, version int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing gateway url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("v", strconv.Itoa(version))
	q.Set("encoding", "json")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
