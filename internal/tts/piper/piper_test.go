package piper

import (
	"bufio"
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenix-tts/phoenix/internal/config"
	"github.com/phoenix-tts/phoenix/internal/tts"
)

// fakeWyomingServer accepts one connection, reads the synthesize event, and
// replies with the given event script.
func fakeWyomingServer(t *testing.T, reply func(t *testing.T, conn net.Conn, req *event)) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { lis.Close() })

	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		req, _, err := readEvent(bufio.NewReader(conn))
		if err != nil {
			return
		}
		reply(t, conn, req)
	}()

	return lis.Addr().String()
}

func TestSynthesize(t *testing.T) {
	pcm1 := []byte{1, 0, 2, 0}
	pcm2 := []byte{3, 0, 4, 0}

	addr := fakeWyomingServer(t, func(t *testing.T, conn net.Conn, req *event) {
		assert.Equal(t, "synthesize", req.Type)
		assert.Equal(t, "hello", req.Data["text"])

		voice, ok := req.Data["voice"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "en_US-lessac-medium", voice["name"])

		require.NoError(t, writeEvent(conn, event{
			Type: "audio-start",
			Data: map[string]any{"rate": 22050.0, "channels": 1.0, "width": 2.0},
		}, nil))
		require.NoError(t, writeEvent(conn, event{Type: "audio-chunk"}, pcm1))
		require.NoError(t, writeEvent(conn, event{Type: "audio-chunk"}, pcm2))
		require.NoError(t, writeEvent(conn, event{Type: "audio-stop"}, nil))
	})

	s := New(config.PiperConfig{Endpoint: addr})
	res, err := s.Synthesize(context.Background(), "hello", tts.VoiceSpec{
		Primary: "en_US-lessac-medium",
	})
	require.NoError(t, err)

	assert.Equal(t, append(pcm1, pcm2...), res.PCM)
	assert.Equal(t, 22050, res.SampleRate)
	assert.Equal(t, 1, res.Channels)
}

func TestSynthesizeUsesDominantVoice(t *testing.T) {
	addr := fakeWyomingServer(t, func(t *testing.T, conn net.Conn, req *event) {
		voice, _ := req.Data["voice"].(map[string]any)
		assert.Equal(t, "second-voice", voice["name"])

		require.NoError(t, writeEvent(conn, event{Type: "audio-stop"}, nil))
	})

	s := New(config.PiperConfig{Endpoint: addr})
	_, err := s.Synthesize(context.Background(), "hi", tts.VoiceSpec{
		Primary:   "first-voice",
		Secondary: "second-voice",
		Blend:     20,
	})
	require.NoError(t, err)
}

func TestSynthesizeServerError(t *testing.T) {
	addr := fakeWyomingServer(t, func(t *testing.T, conn net.Conn, req *event) {
		require.NoError(t, writeEvent(conn, event{
			Type: "error",
			Data: map[string]any{"text": "unknown voice"},
		}, nil))
	})

	s := New(config.PiperConfig{Endpoint: addr})
	_, err := s.Synthesize(context.Background(), "hi", tts.VoiceSpec{Primary: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown voice")
}

func TestSynthesizeRejectsUnsupportedWidth(t *testing.T) {
	addr := fakeWyomingServer(t, func(t *testing.T, conn net.Conn, req *event) {
		require.NoError(t, writeEvent(conn, event{
			Type: "audio-start",
			Data: map[string]any{"rate": 22050.0, "channels": 1.0, "width": 4.0},
		}, nil))
	})

	s := New(config.PiperConfig{Endpoint: addr})
	_, err := s.Synthesize(context.Background(), "hi", tts.VoiceSpec{Primary: "v"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample width")
}

func TestSynthesizeRejectsEmptyInput(t *testing.T) {
	s := New(config.PiperConfig{Endpoint: "localhost:10200"})

	_, err := s.Synthesize(context.Background(), "", tts.VoiceSpec{Primary: "v"})
	assert.Error(t, err)

	_, err = s.Synthesize(context.Background(), "hi", tts.VoiceSpec{})
	assert.Error(t, err)
}

func TestEndpointPrefixTrimming(t *testing.T) {
	assert.Equal(t, "localhost:10200", New(config.PiperConfig{Endpoint: "tcp://localhost:10200"}).endpoint)
	assert.Equal(t, "localhost:10200", New(config.PiperConfig{Endpoint: "localhost:10200"}).endpoint)
}

func TestEventRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		_ = writeEvent(server, event{
			Type: "audio-chunk",
			Data: map[string]any{"rate": 22050.0},
		}, []byte{9, 8, 7})
	}()

	evt, payload, err := readEvent(bufio.NewReader(client))
	require.NoError(t, err)
	assert.Equal(t, "audio-chunk", evt.Type)
	assert.Equal(t, 22050.0, evt.Data["rate"])
	assert.Equal(t, []byte{9, 8, 7}, payload)
}
