// Package tts defines the interface for text-to-speech synthesis.
//
// Phoenix delegates all synthesis to a pre-built neural engine (Kokoro or
// Piper). This package holds the contract between the speak pipeline and
// those backends, plus the voice-blend description the UI edits.
package tts

import "context"

// VoiceSpec selects the voice (or blended pair of voices) for an utterance.
type VoiceSpec struct {
	// Primary is the first voice name (e.g., "af_bella").
	Primary string

	// Secondary is the second voice of the blend. Empty disables blending.
	Secondary string

	// Blend is the percentage (0-100) of the primary voice in the mix.
	// 100 means primary only, 0 means secondary only.
	Blend int
}

// Weights returns the normalized mix weights for the primary and secondary
// voices. A spec without a secondary voice always weighs 1.0 / 0.0.
func (v VoiceSpec) Weights() (primary, secondary float64) {
	if v.Secondary == "" {
		return 1.0, 0.0
	}
	b := v.Blend
	if b < 0 {
		b = 0
	}
	if b > 100 {
		b = 100
	}
	return float64(b) / 100, float64(100-b) / 100
}

// Dominant returns the voice that carries the larger share of the blend.
// Backends without native blend support fall back to this voice.
func (v VoiceSpec) Dominant() string {
	if v.Secondary == "" {
		return v.Primary
	}
	p, _ := v.Weights()
	if p >= 0.5 {
		return v.Primary
	}
	return v.Secondary
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Synthesize generates audio (raw PCM 16-bit LE) from the given text.
	Synthesize(ctx context.Context, text string, voice VoiceSpec) (*Result, error)

	// Name returns the backend identifier (e.g., "kokoro", "piper").
	Name() string

	// Close releases any resources held by the synthesizer.
	Close() error
}

// Result holds the output of TTS synthesis.
type Result struct {
	// PCM is the synthesized audio as raw 16-bit little-endian samples.
	PCM []byte

	// SampleRate is the audio sample rate in Hz (e.g., 24000).
	SampleRate int

	// Channels is the number of audio channels (typically 1).
	Channels int
}
