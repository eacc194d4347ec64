package kokoro

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenix-tts/phoenix/internal/audio"
	"github.com/phoenix-tts/phoenix/internal/config"
	"github.com/phoenix-tts/phoenix/internal/tts"
)

// fakeSpeechServer mimics the Kokoro OpenAI-compatible speech endpoint and
// records the request body for assertions.
func fakeSpeechServer(t *testing.T, pcm []byte, rate int) (*httptest.Server, *map[string]any) {
	t.Helper()

	var lastReq map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/audio/speech", r.URL.Path)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastReq))

		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(audio.EncodeWAV(pcm, rate, 1))
	}))

	return server, &lastReq
}

func TestSynthesize(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0}
	server, lastReq := fakeSpeechServer(t, pcm, 24000)
	defer server.Close()

	s := New(config.KokoroConfig{
		Endpoint: server.URL + "/v1",
		Model:    "kokoro",
	})

	res, err := s.Synthesize(context.Background(), "hello there", tts.VoiceSpec{
		Primary:   "af_bella",
		Secondary: "af_sky",
		Blend:     60,
	})
	require.NoError(t, err)

	assert.Equal(t, pcm, res.PCM)
	assert.Equal(t, 24000, res.SampleRate)
	assert.Equal(t, 1, res.Channels)

	req := *lastReq
	assert.Equal(t, "hello there", req["input"])
	assert.Equal(t, "kokoro", req["model"])
	assert.Equal(t, "af_bella(0.60)+af_sky(0.40)", req["voice"])
	assert.Equal(t, "wav", req["response_format"])
}

func TestSynthesizeRejectsEmptyInput(t *testing.T) {
	s := New(config.KokoroConfig{Endpoint: "http://localhost:0/v1", Model: "kokoro"})

	_, err := s.Synthesize(context.Background(), "", tts.VoiceSpec{Primary: "af_bella"})
	assert.Error(t, err)

	_, err = s.Synthesize(context.Background(), "hello", tts.VoiceSpec{})
	assert.Error(t, err)
}

func TestSynthesizeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "voice not found"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	s := New(config.KokoroConfig{Endpoint: server.URL + "/v1", Model: "kokoro"})
	_, err := s.Synthesize(context.Background(), "hello", tts.VoiceSpec{Primary: "nope"})
	assert.Error(t, err)
}

func TestBlendedVoice(t *testing.T) {
	tests := []struct {
		name string
		spec tts.VoiceSpec
		want string
	}{
		{"even blend", tts.VoiceSpec{Primary: "af_bella", Secondary: "af_sky", Blend: 50}, "af_bella(0.50)+af_sky(0.50)"},
		{"single voice", tts.VoiceSpec{Primary: "af_bella", Blend: 50}, "af_bella"},
		{"full primary", tts.VoiceSpec{Primary: "af_bella", Secondary: "af_sky", Blend: 100}, "af_bella"},
		{"full secondary", tts.VoiceSpec{Primary: "af_bella", Secondary: "af_sky", Blend: 0}, "af_sky"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, blendedVoice(tt.spec))
		})
	}
}
