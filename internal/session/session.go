// Package session pairs the two speech analyzers for one conversation: a
// speech segmenter on the user's inbound audio and a barge-in detector that
// is armed while the assistant is playing back synthesized speech.
//
// A Session is the concurrency boundary around the analyzers: the analyzers
// themselves are single-goroutine state machines, and the session serialises
// frame processing and assistant-playback notifications behind one mutex so
// the ingest loop and the playback side may live on different goroutines.
// Each session is bound to exactly one call; nothing is shared across
// sessions.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxtone/talkover/internal/observe"
	"github.com/fluxtone/talkover/pkg/audio"
	"github.com/fluxtone/talkover/pkg/bargein"
	"github.com/fluxtone/talkover/pkg/vad"
)

// EventType classifies the detection events a session publishes.
type EventType int

const (
	// SpeechStart is emitted when the user begins speaking.
	SpeechStart EventType = iota

	// SpeechEnd is emitted when the user's utterance is confirmed over.
	SpeechEnd

	// BargeIn is emitted when the user interrupts assistant playback.
	BargeIn
)

// String returns the human-readable name of the event type.
func (e EventType) String() string {
	switch e {
	case SpeechStart:
		return "SPEECH_START"
	case SpeechEnd:
		return "SPEECH_END"
	case BargeIn:
		return "BARGE_IN"
	default:
		return "UNKNOWN"
	}
}

// Event is a detection event published on [Session.Events].
type Event struct {
	// Type classifies the event.
	Type EventType

	// SessionID identifies the session that produced the event.
	SessionID string

	// Level is the RMS energy of the frame that caused the event.
	Level float64

	// Timestamp records when the event was detected.
	Timestamp time.Time
}

// Config holds the per-session settings.
type Config struct {
	// SampleRate is the analysis rate; incoming frames at other formats are
	// normalized to mono at this rate.
	SampleRate int

	// Segmentation is the speech segmenter tuning.
	Segmentation vad.Config

	// BargeIn is the barge-in detector tuning.
	BargeIn bargein.Config

	// Metrics receives per-frame and per-event instrumentation. When nil,
	// [observe.DefaultMetrics] is used.
	Metrics *observe.Metrics
}

// eventBuffer is the capacity of the session event channel. Consumers that
// fall further behind than this lose events (with a logged warning) rather
// than stalling frame processing.
const eventBuffer = 16

// Session runs both analyzers for a single call.
//
// All exported methods are safe for concurrent use.
type Session struct {
	id      string
	metrics *observe.Metrics

	mu     sync.Mutex
	conv   audio.FormatConverter
	seg    *vad.Segmenter
	det    *bargein.Detector
	closed bool

	// Current speech segment span; nil outside an utterance.
	segSpan  trace.Span
	segStart time.Time

	events chan Event
}

// newSession creates a session with the given ID and tuning. Sessions are
// normally created through a [Manager].
func newSession(id string, cfg Config) *Session {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Session{
		id:      id,
		metrics: metrics,
		conv:    audio.FormatConverter{TargetRate: cfg.SampleRate},
		seg:     vad.NewSegmenter(cfg.Segmentation),
		det:     bargein.NewDetector(cfg.BargeIn),
		events:  make(chan Event, eventBuffer),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Events returns the channel on which detection events are published.
// The channel is closed when the session closes.
func (s *Session) Events() <-chan Event { return s.events }

// ProcessInbound analyses one frame of the user's audio. The frame is
// normalized to the session's format, fed to the segmenter, and — while the
// assistant is speaking — to the barge-in detector. The segmenter result is
// returned for caller diagnostics.
func (s *Session) ProcessInbound(ctx context.Context, frame audio.AudioFrame) vad.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return vad.Result{}
	}

	conv := s.conv.Convert(frame)
	if len(conv.Data) == 0 {
		return vad.Result{}
	}

	res := s.seg.ProcessChunk(conv.Data)
	s.metrics.RecordFrame(ctx, "inbound", res.Level)

	switch res.Event {
	case vad.EventSpeechStart:
		s.segStart = time.Now()
		_, s.segSpan = observe.StartSpan(ctx, "speech_segment",
			trace.WithAttributes(attribute.String("session_id", s.id)),
		)
		s.publish(Event{Type: SpeechStart, SessionID: s.id, Level: res.Level, Timestamp: time.Now()})
	case vad.EventSpeechEnd:
		if s.segSpan != nil {
			s.segSpan.End()
			s.segSpan = nil
			s.metrics.SpeechSegmentDuration.Record(ctx, time.Since(s.segStart).Seconds())
		}
		s.metrics.SpeechSegments.Add(ctx, 1)
		s.publish(Event{Type: SpeechEnd, SessionID: s.id, Level: res.Level, Timestamp: time.Now()})
	}

	if s.det.CheckForBargeIn(conv.Data) {
		s.metrics.BargeIns.Add(ctx, 1)
		slog.Debug("barge-in detected", "session", s.id, "level", res.Level)
		s.publish(Event{Type: BargeIn, SessionID: s.id, Level: res.Level, Timestamp: time.Now()})
	}

	return res
}

// RecordOutbound notes one frame of assistant playback audio for level
// diagnostics. Outbound audio is not analysed; playback boundaries are
// reported explicitly via [Session.StartAssistantSpeech] and
// [Session.StopAssistantSpeech].
func (s *Session) RecordOutbound(ctx context.Context, frame audio.AudioFrame) {
	s.metrics.RecordFrame(ctx, "outbound", audio.Level(frame.Data))
}

// StartAssistantSpeech arms barge-in monitoring: assistant playback started.
func (s *Session) StartAssistantSpeech() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.det.StartAssistantSpeech()
}

// StopAssistantSpeech disarms barge-in monitoring: assistant playback ended.
func (s *Session) StopAssistantSpeech() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.det.StopAssistantSpeech()
}

// AssistantSpeaking reports whether barge-in monitoring is currently armed.
func (s *Session) AssistantSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.det.IsCurrentlySpeaking()
}

// UserSpeaking reports whether the user is currently inside an utterance.
func (s *Session) UserSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seg.IsCurrentlySpeaking()
}

// SetTuning re-applies analyzer tuning to the live session, effective on the
// next processed frame. Used by the config watcher for hot reload.
func (s *Session) SetTuning(seg vad.Config, bi bargein.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seg.SetThreshold(seg.Threshold)
	s.seg.SetSilenceDuration(seg.SilenceDuration)
	s.det.SetThreshold(bi.Threshold)
	s.det.SetRequiredConsecutiveSamples(bi.RequiredConsecutiveSamples)
}

// Run pumps frames from inbound through [Session.ProcessInbound] until the
// channel closes or ctx is cancelled, then closes the session. Intended to
// run on its own goroutine, typically supervised by a [Manager].
func (s *Session) Run(ctx context.Context, inbound <-chan audio.AudioFrame) error {
	defer s.close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-inbound:
			if !ok {
				return nil
			}
			s.ProcessInbound(ctx, frame)
		}
	}
}

// publish delivers ev without blocking frame processing. Must be called with
// s.mu held.
func (s *Session) publish(ev Event) {
	select {
	case s.events <- ev:
	default:
		slog.Warn("session event dropped: consumer too slow", "session", s.id, "event", ev.Type)
	}
}

// close ends any open speech segment span and closes the event channel.
// Idempotent.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.segSpan != nil {
		s.segSpan.End()
		s.segSpan = nil
	}
	close(s.events)
}
