package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fluxtone/talkover/internal/config"
	"github.com/fluxtone/talkover/internal/observe"
	"github.com/fluxtone/talkover/pkg/audio"
)

// Manager owns the lifecycle of concurrent analysis sessions: one per live
// call. Session pump loops run under a shared errgroup; closing the manager
// cancels them all and waits for them to drain.
//
// All exported methods are safe for concurrent use.
type Manager struct {
	metrics *observe.Metrics

	mu       sync.Mutex
	cfg      *config.Config
	sessions map[string]*Session
	closed   bool

	g      *errgroup.Group
	gctx   context.Context
	cancel context.CancelFunc
}

// NewManager creates a Manager using cfg for new sessions' tuning. Sessions
// opened later are supervised under a context derived from ctx. When metrics
// is nil, [observe.DefaultMetrics] is used.
func NewManager(ctx context.Context, cfg *config.Config, metrics *observe.Metrics) *Manager {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	return &Manager{
		metrics:  metrics,
		cfg:      cfg,
		sessions: make(map[string]*Session),
		g:        g,
		gctx:     gctx,
		cancel:   cancel,
	}
}

// Open creates a session for one call and starts pumping inbound through it.
// The session ends when inbound closes or the manager is closed.
func (m *Manager) Open(inbound <-chan audio.AudioFrame) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("session: manager is closed")
	}

	cfg := m.cfg
	s := newSession(uuid.NewString(), Config{
		SampleRate:   cfg.Audio.SampleRate,
		Segmentation: cfg.Segmentation.VADConfig(),
		BargeIn:      cfg.BargeIn.DetectorConfig(),
		Metrics:      m.metrics,
	})
	m.sessions[s.id] = s
	m.metrics.ActiveSessions.Add(m.gctx, 1)
	slog.Info("session opened", "session", s.id, "sample_rate", cfg.Audio.SampleRate)

	m.g.Go(func() error {
		defer func() {
			m.mu.Lock()
			delete(m.sessions, s.id)
			m.mu.Unlock()
			m.metrics.ActiveSessions.Add(context.Background(), -1)
			slog.Info("session closed", "session", s.id)
		}()
		if err := s.Run(m.gctx, inbound); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return s, nil
}

// Get returns the session with the given ID, or nil when it does not exist.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ApplyConfig adopts cfg for future sessions and hot-applies the analyzer
// tuning to all running ones. Wire this to [config.Watcher]'s onChange.
func (m *Manager) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)

	m.mu.Lock()
	m.cfg = new
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	if !d.SegmentationChanged && !d.BargeInChanged {
		return
	}
	for _, s := range sessions {
		s.SetTuning(new.Segmentation.VADConfig(), new.BargeIn.DetectorConfig())
	}
	slog.Info("analyzer tuning reloaded", "sessions", len(sessions),
		"segmentation_changed", d.SegmentationChanged,
		"barge_in_changed", d.BargeInChanged,
	)
}

// Close cancels all session pump loops and waits for them to exit. Safe to
// call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	if err := m.g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
