// Package server exposes the speak pipeline over HTTP for headless use.
//
// The same pipeline that backs the terminal UI is reachable remotely:
// POST /speak synthesizes and plays text on this machine's speakers, which
// makes phoenix usable as a small network announcement box. /healthz and
// /readyz follow the usual liveness conventions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/phoenix-tts/phoenix/internal/audio"
	"github.com/phoenix-tts/phoenix/internal/speak"
	"github.com/phoenix-tts/phoenix/internal/tts"
	"github.com/phoenix-tts/phoenix/internal/voices"
)

// Speaker is the part of the speak pipeline the server needs.
type Speaker interface {
	Speak(ctx context.Context, text string, voice tts.VoiceSpec) (*speak.Result, error)
}

// SpeakRequest is the POST /speak body. Voice fields are optional; missing
// ones fall back to the persisted preferences.
type SpeakRequest struct {
	Text   string `json:"text"`
	Voice1 string `json:"voice1,omitempty"`
	Voice2 string `json:"voice2,omitempty"`
	Blend  *int   `json:"blend,omitempty"`
}

// SpeakResponse reports the queued utterance.
type SpeakResponse struct {
	UtteranceID string `json:"utterance_id"`
	Text        string `json:"text"`
	DurationMS  int64  `json:"duration_ms"`
}

// Server is the headless HTTP front-end.
type Server struct {
	port    int
	speaker Speaker
	prefs   voices.Prefs
	ready   atomic.Bool
	server  *http.Server
}

// New creates a server on the given port. prefs supply the default voices
// for requests that don't override them.
func New(port int, speaker Speaker, prefs voices.Prefs) *Server {
	return &Server{port: port, speaker: speaker, prefs: prefs}
}

// SetReady marks the engine as probed and ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /speak", s.handleSpeak)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleHealth)

	// Swagger UI — serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// ListenAndServe starts the HTTP server. It blocks until the context is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		slog.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleSpeak processes a POST /speak request.
//
// @Summary     Speak text on this machine's speakers
// @Description Normalizes the text, synthesizes it with the configured engine,
// @Description and queues the audio for playback on the default output device.
// @Description Voice fields are optional and default to the persisted preferences.
// @Tags        speak
// @Accept      json
// @Produce     json
// @Param       request  body      SpeakRequest  true  "Utterance to speak"
// @Success     200  {object}  SpeakResponse  "Utterance queued for playback"
// @Failure     400  {string}  string  "Invalid body or nothing speakable"
// @Failure     503  {string}  string  "Playback queue full"
// @Failure     500  {string}  string  "Synthesis failure"
// @Router      /speak [post]
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req SpeakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	voice := tts.VoiceSpec{
		Primary:   s.prefs.Voice1,
		Secondary: s.prefs.Voice2,
		Blend:     s.prefs.Blend,
	}
	if req.Voice1 != "" {
		voice.Primary = req.Voice1
	}
	if req.Voice2 != "" {
		voice.Secondary = req.Voice2
	}
	if req.Blend != nil {
		voice.Blend = *req.Blend
	}

	result, err := s.speaker.Speak(r.Context(), req.Text, voice)
	switch {
	case errors.Is(err, speak.ErrEmptyText):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, audio.ErrQueueFull):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		slog.Error("speak request failed", "error", err)
		http.Error(w, "speak error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(SpeakResponse{
		UtteranceID: result.ID,
		Text:        result.Text,
		DurationMS:  result.Duration.Milliseconds(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
