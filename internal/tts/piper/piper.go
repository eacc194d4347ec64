// Package piper implements the TTS Synthesizer using a Piper Wyoming
// protocol server, such as the linuxserver/piper container on TCP 10200.
//
// Wyoming protocol format (per event):
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>   (if payload_length > 0)
//
// Piper voices are single-speaker models, so there is no native blend
// support: when a blended VoiceSpec arrives, the dominant voice is used.
package piper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/phoenix-tts/phoenix/internal/config"
	"github.com/phoenix-tts/phoenix/internal/tts"
)

const defaultTimeout = 30 * time.Second

// Synthesizer implements tts.Synthesizer using the Wyoming protocol.
type Synthesizer struct {
	endpoint string // host:port of the Piper Wyoming server
}

// New creates a new Piper synthesizer from config.
func New(cfg config.PiperConfig) *Synthesizer {
	endpoint := cfg.Endpoint
	endpoint = strings.TrimPrefix(endpoint, "tcp://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return &Synthesizer{endpoint: endpoint}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "piper" }

// Synthesize sends text to the Piper server and returns the raw PCM audio.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice tts.VoiceSpec) (*tts.Result, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	if s.endpoint == "" {
		return nil, fmt.Errorf("no piper endpoint configured")
	}

	name := voice.Dominant()
	if name == "" {
		return nil, fmt.Errorf("no voice selected")
	}
	if voice.Secondary != "" {
		slog.Debug("piper has no blend support, using dominant voice", "voice", name)
	}

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to piper: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(defaultTimeout))
	}

	if err := writeEvent(conn, event{
		Type: "synthesize",
		Data: map[string]any{
			"text":  text,
			"voice": map[string]any{"name": name},
		},
	}, nil); err != nil {
		return nil, fmt.Errorf("sending synthesize event: %w", err)
	}

	return collectAudio(bufio.NewReader(conn))
}

// collectAudio consumes response events until audio-stop and assembles the
// PCM stream: audio-start → audio-chunk* → audio-stop.
func collectAudio(r *bufio.Reader) (*tts.Result, error) {
	var (
		pcm        bytes.Buffer
		sampleRate = 22050
		channels   = 1
	)

	for {
		evt, payload, err := readEvent(r)
		if err != nil {
			return nil, fmt.Errorf("reading piper event: %w", err)
		}

		switch evt.Type {
		case "audio-start":
			if rate, ok := evt.Data["rate"].(float64); ok {
				sampleRate = int(rate)
			}
			if ch, ok := evt.Data["channels"].(float64); ok {
				channels = int(ch)
			}
			// Only 16-bit samples are decodable downstream.
			if width, ok := evt.Data["width"].(float64); ok && int(width) != 2 {
				return nil, fmt.Errorf("unsupported sample width %d, want 2", int(width))
			}

		case "audio-chunk":
			pcm.Write(payload)

		case "audio-stop":
			slog.Debug("piper synthesis complete", "pcm_bytes", pcm.Len(), "rate", sampleRate)
			return &tts.Result{
				PCM:        pcm.Bytes(),
				SampleRate: sampleRate,
				Channels:   channels,
			}, nil

		case "error":
			msg := "unknown error"
			if text, ok := evt.Data["text"].(string); ok {
				msg = text
			}
			return nil, fmt.Errorf("piper error: %s", msg)

		default:
			slog.Debug("piper unknown event", "type", evt.Type)
		}
	}
}

// Close is a no-op — connections are per-request.
func (s *Synthesizer) Close() error { return nil }

// --- Wyoming protocol helpers ---

type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// writeEvent sends a Wyoming event over the connection.
func writeEvent(w io.Writer, evt event, payload []byte) error {
	jsonBytes, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d\n", len(jsonBytes), len(payload))
	buf.Write(jsonBytes)
	buf.WriteByte('\n')
	buf.Write(payload)

	_, err = w.Write(buf.Bytes())
	return err
}

// readEvent reads a Wyoming event and its payload from the connection.
func readEvent(r *bufio.Reader) (*event, []byte, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	parts := strings.SplitN(strings.TrimSuffix(header, "\n"), " ", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("invalid wyoming header: %q", header)
	}
	jsonLen, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing json_length: %w", err)
	}
	payloadLen, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing payload_length: %w", err)
	}

	// JSON + trailing newline.
	jsonBuf := make([]byte, jsonLen+1)
	if _, err := io.ReadFull(r, jsonBuf); err != nil {
		return nil, nil, fmt.Errorf("reading json: %w", err)
	}

	var evt event
	if err := json.Unmarshal(jsonBuf[:jsonLen], &evt); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("reading payload: %w", err)
		}
	}

	return &evt, payload, nil
}
