package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/soyeahso/cpbot/internal/logging"
	"github.com/soyeahso/cpbot/internal/metrics"
)

// ErrHeartbeatTimeout means a heartbeat went unacknowledged for a full interval.
var ErrHeartbeatTimeout = errors.New("heartbeat not acknowledged")

// Heartbeater sends a heartbeat frame every interval until its context ends.
type Heartbeater struct {
	interval   time.Duration
	sequence   func() *int64
	send       func([]byte) error
	requireAck bool
	log        *logging.Logger
	metrics    *metrics.Metrics

	acked atomic.Bool
	sent  atomic.Int64
}

// NewHeartbeater creates a driver. sequence is read at every send and returns
// nil until the first sequenced frame arrives.
func NewHeartbeater(interval time.Duration, sequence func() *int64, send func([]byte) error, requireAck bool, log *logging.Logger, m *metrics.Metrics) *Heartbeater {
	h := &Heartbeater{
		interval:   interval,
		sequence:   sequence,
		send:       send,
		requireAck: requireAck,
		log:        log,
		metrics:    m,
	}
	h.acked.Store(true)
	return h
}

// Run blocks until ctx is cancelled (returning nil) or a heartbeat cannot be
// sent. The first heartbeat goes out one interval after Run starts.
func (h *Heartbeater) Run(ctx context.Context) error {
	if h.interval <= 0 {
		return fmt.Errorf("invalid heartbeat interval %s", h.interval)
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		// Cancellation may race with the tick; cancellation wins.
		if ctx.Err() != nil {
			return nil
		}
		if h.requireAck && !h.acked.Load() {
			return ErrHeartbeatTimeout
		}
		if err := h.Beat(); err != nil {
			return err
		}
	}
}

// Beat sends one heartbeat immediately.
func (h *Heartbeater) Beat() error {
	seq := h.sequence()
	data, err := EncodeFrame(OpHeartbeat, seq)
	if err != nil {
		return err
	}
	h.acked.Store(false)
	if err := h.send(data); err != nil {
		return fmt.Errorf("sending heartbeat: %w", err)
	}
	h.sent.Add(1)
	h.metrics.RecordHeartbeat()

	ev := h.log.Trace()
	if seq != nil {
		ev = ev.Int64("seq", *seq)
	}
	ev.Msg("heartbeat sent")
	return nil
}

// Ack records a HeartbeatAck from the server.
func (h *Heartbeater) Ack() {
	h.acked.Store(true)
	h.metrics.RecordHeartbeatAck()
}

// Sent returns the number of heartbeats sent so far.
func (h *Heartbeater) Sent() int64 {
	return h.sent.Load()
}
