package session_test

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/fluxtone/talkover/internal/config"
	"github.com/fluxtone/talkover/internal/session"
	"github.com/fluxtone/talkover/pkg/audio"
)

// frameWithLevel builds a mono 8kHz frame whose RMS is approximately level.
func frameWithLevel(level float64) audio.AudioFrame {
	s := int16(level * 32768)
	buf := make([]byte, 160*2)
	for i := 0; i < 160; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return audio.AudioFrame{Data: buf, SampleRate: 8000, Channels: 1}
}

// testConfig returns a config with an instant speech-end: with silence_ms 0,
// the second consecutive quiet frame confirms the end of an utterance.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Segmentation.Threshold = 0.1
	cfg.Segmentation.SilenceMs = 0
	cfg.BargeIn.Threshold = 0.1
	cfg.BargeIn.ConsecutiveFrames = 3
	return cfg
}

func collectEvents(t *testing.T, s *session.Session, n int) []session.Event {
	t.Helper()
	var got []session.Event
	timeout := time.After(5 * time.Second)
	for len(got) < n {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				t.Fatalf("event channel closed after %d events, want %d", len(got), n)
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("timed out after %d events, want %d", len(got), n)
		}
	}
	return got
}

func TestSession_SpeechStartAndEndEvents(t *testing.T) {
	m := session.NewManager(context.Background(), testConfig(), nil)
	defer m.Close()

	in := make(chan audio.AudioFrame, 8)
	s, err := m.Open(in)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	in <- frameWithLevel(0.3) // speech start
	in <- frameWithLevel(0.3)
	in <- frameWithLevel(0) // silence timer starts
	in <- frameWithLevel(0) // speech end (silence_ms 0)
	close(in)

	got := collectEvents(t, s, 2)
	if got[0].Type != session.SpeechStart {
		t.Errorf("event 0: got %v, want %v", got[0].Type, session.SpeechStart)
	}
	if got[1].Type != session.SpeechEnd {
		t.Errorf("event 1: got %v, want %v", got[1].Type, session.SpeechEnd)
	}
	if got[0].SessionID != s.ID() {
		t.Errorf("event session ID: got %q, want %q", got[0].SessionID, s.ID())
	}
}

func TestSession_BargeInWhileAssistantSpeaking(t *testing.T) {
	m := session.NewManager(context.Background(), testConfig(), nil)
	defer m.Close()

	in := make(chan audio.AudioFrame, 8)
	s, err := m.Open(in)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	s.StartAssistantSpeech()
	if !s.AssistantSpeaking() {
		t.Fatal("AssistantSpeaking: got false after StartAssistantSpeech")
	}

	// Three consecutive loud frames confirm the interruption; the same
	// frames also constitute a speech start for the segmenter.
	in <- frameWithLevel(0.3)
	in <- frameWithLevel(0.3)
	in <- frameWithLevel(0.3)
	close(in)

	got := collectEvents(t, s, 2)
	if got[0].Type != session.SpeechStart {
		t.Errorf("event 0: got %v, want %v", got[0].Type, session.SpeechStart)
	}
	if got[1].Type != session.BargeIn {
		t.Errorf("event 1: got %v, want %v", got[1].Type, session.BargeIn)
	}
	if s.AssistantSpeaking() {
		t.Error("AssistantSpeaking: still true after barge-in trigger")
	}
}

func TestSession_NoBargeInWhenNotArmed(t *testing.T) {
	m := session.NewManager(context.Background(), testConfig(), nil)
	defer m.Close()

	in := make(chan audio.AudioFrame, 8)
	s, err := m.Open(in)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for i := 0; i < 5; i++ {
		in <- frameWithLevel(0.3)
	}
	close(in)

	var got []session.Event
	for ev := range s.Events() {
		got = append(got, ev)
	}
	for _, ev := range got {
		if ev.Type == session.BargeIn {
			t.Error("barge-in event emitted while not armed")
		}
	}
	if len(got) != 1 || got[0].Type != session.SpeechStart {
		t.Errorf("events: got %v, want a single SPEECH_START", got)
	}
}

func TestSession_EventChannelClosesWhenInboundCloses(t *testing.T) {
	m := session.NewManager(context.Background(), testConfig(), nil)
	defer m.Close()

	in := make(chan audio.AudioFrame)
	s, err := m.Open(in)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	close(in)

	select {
	case _, ok := <-s.Events():
		if ok {
			t.Error("unexpected event on empty session")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event channel did not close after inbound closed")
	}
}

func TestSession_FramesAreNormalized(t *testing.T) {
	// 16kHz stereo input must be downmixed and resampled before analysis.
	m := session.NewManager(context.Background(), testConfig(), nil)
	defer m.Close()

	in := make(chan audio.AudioFrame, 4)
	s, err := m.Open(in)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	amplitude := 0.3 * 32768.0
	loud := int16(amplitude)
	stereo := make([]byte, 320*4)
	for i := 0; i < 320*2; i++ {
		binary.LittleEndian.PutUint16(stereo[i*2:], uint16(loud))
	}
	in <- audio.AudioFrame{Data: stereo, SampleRate: 16000, Channels: 2}
	close(in)

	got := collectEvents(t, s, 1)
	if got[0].Type != session.SpeechStart {
		t.Errorf("event: got %v, want %v", got[0].Type, session.SpeechStart)
	}
}

func TestManager_OpenGetLenClose(t *testing.T) {
	m := session.NewManager(context.Background(), testConfig(), nil)

	in1 := make(chan audio.AudioFrame)
	in2 := make(chan audio.AudioFrame)
	s1, err := m.Open(in1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s2, err := m.Open(in2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	go audio.Drain(s1.Events())
	go audio.Drain(s2.Events())
	if s1.ID() == s2.ID() {
		t.Error("sessions share an ID")
	}
	if m.Len() != 2 {
		t.Errorf("Len: got %d, want 2", m.Len())
	}
	if m.Get(s1.ID()) != s1 {
		t.Error("Get did not return the opened session")
	}

	if err := m.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len after Close: got %d, want 0", m.Len())
	}
	if _, err := m.Open(make(chan audio.AudioFrame)); err == nil {
		t.Error("Open after Close succeeded, want error")
	}
}

func TestManager_ApplyConfigHotReloadsTuning(t *testing.T) {
	old := testConfig()
	old.Segmentation.Threshold = 0.5

	m := session.NewManager(context.Background(), old, nil)
	defer m.Close()

	in := make(chan audio.AudioFrame)
	defer close(in)
	s, err := m.Open(in)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	// This test reads results synchronously, not from the event channel.
	go audio.Drain(s.Events())

	// Below the initial threshold: no speech.
	res := s.ProcessInbound(context.Background(), frameWithLevel(0.3))
	if res.IsSpeech {
		t.Fatal("frame classified as speech before reload")
	}

	updated := testConfig()
	updated.Segmentation.Threshold = 0.1
	m.ApplyConfig(old, updated)

	res = s.ProcessInbound(context.Background(), frameWithLevel(0.3))
	if !res.IsSpeech {
		t.Error("frame not classified as speech after tuning reload")
	}
}
