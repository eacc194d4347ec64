// Package kokoro implements the TTS Synthesizer against a Kokoro server that
// exposes the OpenAI-compatible speech endpoint (POST /v1/audio/speech).
//
// Kokoro supports blending two voices natively through its combined-voice
// syntax: "af_bella(0.6)+af_sky(0.4)". The blend slider in the UI maps
// directly onto those weights, so mixing happens inside the model's style
// space rather than on the rendered samples.
package kokoro

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/phoenix-tts/phoenix/internal/audio"
	"github.com/phoenix-tts/phoenix/internal/config"
	"github.com/phoenix-tts/phoenix/internal/tts"
)

// Synthesizer implements tts.Synthesizer using the OpenAI-compatible API.
type Synthesizer struct {
	client *openai.Client
	model  string
	speed  float64
}

// New creates a new Kokoro synthesizer from config.
func New(cfg config.KokoroConfig) *Synthesizer {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "not-needed" // local Kokoro servers ignore authentication
	}

	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	speed := cfg.Speed
	if speed == 0 {
		speed = 1.0
	}

	return &Synthesizer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		speed:  speed,
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "kokoro" }

// Synthesize sends text to the speech endpoint and returns decoded PCM.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice tts.VoiceSpec) (*tts.Result, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	if voice.Primary == "" {
		return nil, fmt.Errorf("no voice selected")
	}

	voiceStr := blendedVoice(voice)
	slog.Debug("kokoro synthesize", "text_length", len(text), "voice", voiceStr)

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voiceStr),
		ResponseFormat: openai.SpeechResponseFormatWav,
		Speed:          s.speed,
	})
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Close()

	wav, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("reading speech response: %w", err)
	}

	pcm, rate, channels, err := audio.DecodeWAV(wav)
	if err != nil {
		return nil, fmt.Errorf("decoding speech response: %w", err)
	}

	slog.Debug("kokoro synthesis complete", "pcm_bytes", len(pcm), "rate", rate)
	return &tts.Result{PCM: pcm, SampleRate: rate, Channels: channels}, nil
}

// Close is a no-op — requests are stateless HTTP calls.
func (s *Synthesizer) Close() error { return nil }

// blendedVoice renders a VoiceSpec in Kokoro's combined-voice syntax.
func blendedVoice(v tts.VoiceSpec) string {
	p, sec := v.Weights()
	switch {
	case v.Secondary == "" || sec == 0:
		return v.Primary
	case p == 0:
		return v.Secondary
	default:
		return fmt.Sprintf("%s(%.2f)+%s(%.2f)", v.Primary, p, v.Secondary, sec)
	}
}
