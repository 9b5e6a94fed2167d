// Command talkover is an offline tuning tool for the Talkover analysis core.
// It reads raw little-endian PCM16 mono audio from a file or stdin, runs the
// speech segmenter (and optionally an armed barge-in detector) over it at the
// configured frame cadence, and reports every detection event. Use it to tune
// thresholds against recorded call audio before deploying them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fluxtone/talkover/internal/config"
	"github.com/fluxtone/talkover/internal/observe"
	"github.com/fluxtone/talkover/pkg/bargein"
	"github.com/fluxtone/talkover/pkg/vad"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "talkover.yaml", "path to the YAML configuration file")
	inputPath := flag.String("input", "-", "raw PCM16 mono input file, or - for stdin")
	armed := flag.Bool("armed", false, "treat the whole input as played during assistant speech and report barge-ins")
	flag.Parse()

	cfg, usedDefaults, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "talkover: %v\n", err)
		return 1
	}

	slog.SetDefault(newLogger(cfg.LogLevel))
	if usedDefaults {
		slog.Info("config file not found, using defaults", "path", *configPath)
	}

	ctx := context.Background()
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "talkover-tune"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()

	in, err := openInput(*inputPath)
	if err != nil {
		slog.Error("failed to open input", "path", *inputPath, "err", err)
		return 1
	}
	defer in.Close()

	if err := analyze(cfg, in, *armed); err != nil {
		slog.Error("analysis failed", "err", err)
		return 1
	}
	return 0
}

// loadConfig loads the YAML config, falling back to defaults when the file
// does not exist. It reports the fallback instead of logging it: the logger
// is only configured once the log level is known.
func loadConfig(path string) (*config.Config, bool, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.DefaultConfig(), true, nil
	}
	return cfg, false, err
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// analyze runs the analyzers frame by frame over the input and logs every
// event with its position in the stream.
func analyze(cfg *config.Config, in io.Reader, armed bool) error {
	frameBytes := cfg.Audio.SampleRate * cfg.Audio.FrameMs / 1000 * 2
	frameDur := time.Duration(cfg.Audio.FrameMs) * time.Millisecond

	seg := vad.NewSegmenter(cfg.Segmentation.VADConfig())
	det := bargein.NewDetector(cfg.BargeIn.DetectorConfig())
	if armed {
		det.StartAssistantSpeech()
	}

	metrics := observe.DefaultMetrics()
	ctx := context.Background()

	var (
		frames    int
		segments  int
		bargeIns  int
		speechDur time.Duration
		peak      float64
	)

	buf := make([]byte, frameBytes)
	for {
		n, err := io.ReadFull(in, buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				// A trailing partial frame (n bytes) is dropped; upstream
				// framing normally guarantees whole frames.
				if n > 0 {
					slog.Debug("dropping trailing partial frame", "bytes", n)
				}
				break
			}
			return fmt.Errorf("read input: %w", err)
		}

		pos := time.Duration(frames) * frameDur
		res := seg.ProcessChunk(buf)
		metrics.RecordFrame(ctx, "inbound", res.Level)
		if res.Level > peak {
			peak = res.Level
		}
		if res.IsSpeech {
			speechDur += frameDur
		}

		switch res.Event {
		case vad.EventSpeechStart:
			slog.Info("speech start", "pos", pos, "level", fmt.Sprintf("%.4f", res.Level))
		case vad.EventSpeechEnd:
			segments++
			metrics.SpeechSegments.Add(ctx, 1)
			slog.Info("speech end", "pos", pos, "silence", res.SilenceDuration)
		}

		if det.CheckForBargeIn(buf) {
			bargeIns++
			metrics.BargeIns.Add(ctx, 1)
			slog.Info("barge-in", "pos", pos, "level", fmt.Sprintf("%.4f", res.Level))
			if armed {
				// Keep reporting subsequent interruptions in tuning runs.
				det.StartAssistantSpeech()
			}
		}
		frames++
	}

	if seg.IsCurrentlySpeaking() {
		slog.Info("input ended mid-utterance")
	}
	slog.Info("analysis complete",
		"frames", frames,
		"audio", time.Duration(frames)*frameDur,
		"speech", speechDur,
		"segments", segments,
		"barge_ins", bargeIns,
		"peak_level", fmt.Sprintf("%.4f", peak),
	)
	return nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
