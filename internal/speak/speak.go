// Package speak implements the core utterance pipeline.
//
// The speaker receives raw text from a front-end (the TUI or the HTTP API),
// normalizes it, records it in the utterance history, runs it through the
// synthesis backend, and hands the audio to the playback queue. Playback is
// never interrupted by a new utterance — this is an architectural invariant
// inherited from the queue design.
package speak

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phoenix-tts/phoenix/internal/audio"
	"github.com/phoenix-tts/phoenix/internal/history"
	"github.com/phoenix-tts/phoenix/internal/tts"
)

// ErrEmptyText is returned when the input contains nothing speakable after
// normalization.
var ErrEmptyText = errors.New("nothing to speak after normalization")

// Sink receives synthesized clips for playback.
type Sink interface {
	Enqueue(clip audio.Clip) error
}

// Result describes one completed utterance.
type Result struct {
	// ID is the utterance identifier.
	ID string

	// Text is the normalized text that was synthesized.
	Text string

	// HistoryLine is the timestamped entry as recorded in the log.
	HistoryLine string

	// Duration is the length of the synthesized audio.
	Duration time.Duration
}

// Speaker is the pipeline orchestrator.
type Speaker struct {
	synthesizer tts.Synthesizer
	sink        Sink
	log         *history.Log
}

// New creates a Speaker wiring the synthesis backend, the playback sink, and
// the utterance history.
func New(synthesizer tts.Synthesizer, sink Sink, log *history.Log) *Speaker {
	return &Speaker{
		synthesizer: synthesizer,
		sink:        sink,
		log:         log,
	}
}

// Engine returns the name of the synthesis backend.
func (s *Speaker) Engine() string { return s.synthesizer.Name() }

// Speak runs one utterance through the full pipeline:
// normalize → history → synthesize → enqueue.
func (s *Speaker) Speak(ctx context.Context, text string, voice tts.VoiceSpec) (*Result, error) {
	start := time.Now()

	normalized := tts.Normalize(text)
	if normalized == "" {
		return nil, ErrEmptyText
	}

	id := uuid.NewString()
	logger := slog.With("utterance_id", id)
	logger.Info("speak started", "text_length", len(normalized), "voice", voice.Primary)

	line, err := s.log.Append(normalized)
	if err != nil {
		// History is best-effort; the utterance still plays.
		logger.Warn("history append failed", "error", err)
		line = normalized
	}

	res, err := s.synthesizer.Synthesize(ctx, normalized, voice)
	if err != nil {
		logger.Error("synthesis failed", "error", err)
		return nil, fmt.Errorf("synthesizing: %w", err)
	}

	if err := s.sink.Enqueue(audio.Clip{
		ID:         id,
		PCM:        res.PCM,
		SampleRate: res.SampleRate,
		Channels:   res.Channels,
	}); err != nil {
		logger.Error("enqueue failed", "error", err)
		return nil, fmt.Errorf("queueing playback: %w", err)
	}

	dur := clipDuration(len(res.PCM), res.SampleRate, res.Channels)
	logger.Info("speak complete",
		"pcm_bytes", len(res.PCM), "audio_duration", dur, "elapsed", time.Since(start))

	return &Result{
		ID:          id,
		Text:        normalized,
		HistoryLine: line,
		Duration:    dur,
	}, nil
}

// Probe checks whether the synthesis backend is reachable by synthesizing a
// short utterance and discarding the audio. The UI calls this in the
// background at startup so a dead engine surfaces immediately.
func (s *Speaker) Probe(ctx context.Context, voice tts.VoiceSpec) error {
	_, err := s.synthesizer.Synthesize(ctx, "ready", voice)
	if err != nil {
		return fmt.Errorf("probing %s: %w", s.synthesizer.Name(), err)
	}
	return nil
}

func clipDuration(pcmBytes, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	if channels <= 0 {
		channels = 1
	}
	frames := pcmBytes / 2 / channels
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
