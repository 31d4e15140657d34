package stream

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mbaird/twitrelay/internal/domain"
	"github.com/mbaird/twitrelay/internal/metric"
)

// State is the lifecycle state of the managed stream.
type State int

const (
	// NoStream means no stream exists and none is pending; entered when no
	// tracked source ids exist.
	NoStream State = iota
	// Connecting means a create request is in flight.
	Connecting
	// Connected means the provider acknowledged the stream.
	Connected
	// Disconnected means the stream dropped and a reconnect timer is pending.
	Disconnected
	// Fatal means an unrecoverable provider error was seen; the process is
	// terminating.
	Fatal
)

func (s State) String() string {
	switch s {
	case NoStream:
		return "no_stream"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Events receives stream callbacks from a connector. The manager hands each
// opened connection its own Events value; callbacks from a connection that
// has since been replaced are dropped.
type Events interface {
	OnStart()
	OnData(it *domain.Item, lookup *domain.Lookup)
	OnError(serr *Error)
	OnEnd()
}

// Connector opens the low-level streaming connection for a set of source ids
// and feeds callbacks to events until the stream ends.
type Connector interface {
	Open(ctx context.Context, sourceIDs []string, events Events) (io.Closer, error)
}

// Handler consumes one normalized item; implemented by domain.Service.
type Handler interface {
	HandleItem(ctx context.Context, it *domain.Item, lookup *domain.Lookup)
}

// Manager owns the stream lifecycle: connect and reconnect state, exponential
// backoff, and single-flight reconnection scheduling. All state is guarded by
// one mutex; at most one reconnection timer is outstanding at any time.
type Manager struct {
	connector Connector
	users     domain.UserStore
	handler   Handler
	metrics   *metric.Metrics
	logger    *slog.Logger

	// fatal terminates the process on an unrecoverable provider error.
	// Injectable for tests.
	fatal func(serr *Error)

	mu      sync.Mutex
	ctx     context.Context
	state   State
	backoff *Backoff
	timer   *time.Timer
	stream  io.Closer

	// gen identifies the current connection attempt. Each connect bumps it,
	// so events from an older connection can be recognized and dropped.
	gen uint64
}

// connEvents binds one opened connection to the manager.
type connEvents struct {
	m   *Manager
	gen uint64
}

func (e *connEvents) OnStart()                                      { e.m.onStart(e.gen) }
func (e *connEvents) OnData(it *domain.Item, lookup *domain.Lookup) { e.m.onData(e.gen, it, lookup) }
func (e *connEvents) OnError(serr *Error)                           { e.m.onError(e.gen, serr) }
func (e *connEvents) OnEnd()                                        { e.m.onEnd(e.gen) }

// NewManager creates a lifecycle manager. fatal may be nil, in which case
// Fatal errors only transition the state and log.
func NewManager(connector Connector, users domain.UserStore, handler Handler, backoff *Backoff, metrics *metric.Metrics, logger *slog.Logger, fatal func(*Error)) *Manager {
	return &Manager{
		connector: connector,
		users:     users,
		handler:   handler,
		metrics:   metrics,
		logger:    logger,
		fatal:     fatal,
		state:     NoStream,
		backoff:   backoff,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CreateStream opens the stream for the current set of tracked source ids,
// replacing a live stream if one exists. A request arriving while a
// reconnection timer is pending is a logged no-op.
func (m *Manager) CreateStream(ctx context.Context) error {
	m.mu.Lock()
	if m.timer != nil {
		m.mu.Unlock()
		m.logger.Info("create-stream request ignored, reconnect already pending")
		return nil
	}
	m.ctx = ctx
	m.mu.Unlock()

	return m.connect(ctx)
}

// connect recomputes the tracked source id set in full and opens the stream.
// An existing stream is closed first; its remaining events carry a stale
// generation and are ignored. An empty set leaves the manager in NoStream;
// an open failure is treated like a disconnect and scheduled for retry.
func (m *Manager) connect(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	if m.stream != nil {
		m.stream.Close()
		m.stream = nil
	}
	m.mu.Unlock()

	ids, err := m.users.AllSourceIDs(ctx)
	if err != nil {
		m.logger.Error("failed to load tracked source ids", "error", err)
		m.scheduleReconnect()
		return err
	}
	if len(ids) == 0 {
		m.mu.Lock()
		m.state = NoStream
		m.mu.Unlock()
		m.logger.Info("no tracked sources, stream not created")
		return nil
	}

	m.mu.Lock()
	m.state = Connecting
	m.mu.Unlock()
	m.logger.Info("creating stream", "sources", len(ids))

	stream, err := m.connector.Open(ctx, ids, &connEvents{m: m, gen: gen})
	if err != nil {
		m.logger.Error("stream connect failed", "error", err)
		m.mu.Lock()
		m.state = Disconnected
		m.mu.Unlock()
		m.scheduleReconnect()
		return err
	}

	m.mu.Lock()
	if gen != m.gen {
		// A newer connect superseded this one while the dial was in flight.
		m.mu.Unlock()
		stream.Close()
		return nil
	}
	m.stream = stream
	m.mu.Unlock()
	return nil
}

// onStart handles provider acknowledgement: the stream is live and the
// backoff resets to its initial value.
func (m *Manager) onStart(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.state = Connected
	m.backoff.Reset()
	m.mu.Unlock()
	m.logger.Info("stream connected")
}

// onData forwards one item at a time, end-to-end, in arrival order.
func (m *Manager) onData(gen uint64, it *domain.Item, lookup *domain.Lookup) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	ctx := m.ctx
	m.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	m.handler.HandleItem(ctx, it, lookup)
}

// onError handles a provider error. A fatal one terminates the process;
// anything else is logged and handled like a disconnect.
func (m *Manager) onError(gen uint64, serr *Error) {
	if !m.currentGen(gen) {
		m.logger.Debug("ignoring error from replaced stream", "code", serr.Code)
		return
	}
	if serr.IsFatal() {
		m.logger.Error("fatal stream error, terminating", "code", serr.Code, "title", serr.Title)
		m.mu.Lock()
		m.state = Fatal
		if m.timer != nil {
			m.timer.Stop()
			m.timer = nil
		}
		m.mu.Unlock()
		if m.fatal != nil {
			m.fatal(serr)
		}
		return
	}
	m.logger.Error("stream error", "code", serr.Code, "title", serr.Title, "detail", serr.Detail)
	m.disconnected()
}

// onEnd handles a provider-initiated disconnect. A replaced stream winding
// down must not disturb its successor.
func (m *Manager) onEnd(gen uint64) {
	if !m.currentGen(gen) {
		m.logger.Debug("ignoring end of replaced stream")
		return
	}
	m.logger.Warn("stream disconnected")
	m.disconnected()
}

func (m *Manager) currentGen(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

func (m *Manager) disconnected() {
	m.mu.Lock()
	if m.state == Fatal {
		m.mu.Unlock()
		return
	}
	m.state = Disconnected
	if m.stream != nil {
		m.stream.Close()
		m.stream = nil
	}
	m.mu.Unlock()

	m.scheduleReconnect()
}

// scheduleReconnect arms the single reconnection timer using the current
// backoff value, then increments the backoff. A timer already pending is
// canceled and replaced, never accumulated.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Fatal {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}

	delay := m.backoff.Next()
	m.metrics.IncReconnects()
	m.logger.Info("reconnect scheduled", "delay", delay)

	m.timer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		m.timer = nil
		ctx := m.ctx
		m.mu.Unlock()
		if ctx == nil {
			ctx = context.Background()
		}
		if ctx.Err() != nil {
			return
		}
		// connect reschedules itself on failure.
		_ = m.connect(ctx)
	})
}

// Shutdown stops any pending reconnect timer and closes the live stream.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.stream != nil {
		m.stream.Close()
		m.stream = nil
	}
	if m.state != Fatal {
		m.state = NoStream
	}
}
