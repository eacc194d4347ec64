// Phoenix is a local text-to-speech companion: type a line, hear it spoken
// through the default output device by a pre-built neural voice engine.
//
// Usage:
//
//	phoenix [flags]
//	phoenix --config /path/to/phoenix.yaml
//	phoenix --serve            (headless HTTP mode)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phoenix-tts/phoenix/internal/audio"
	"github.com/phoenix-tts/phoenix/internal/config"
	"github.com/phoenix-tts/phoenix/internal/history"
	"github.com/phoenix-tts/phoenix/internal/server"
	"github.com/phoenix-tts/phoenix/internal/speak"
	"github.com/phoenix-tts/phoenix/internal/tts"
	"github.com/phoenix-tts/phoenix/internal/tts/kokoro"
	"github.com/phoenix-tts/phoenix/internal/tts/piper"
	"github.com/phoenix-tts/phoenix/internal/ui"
	"github.com/phoenix-tts/phoenix/internal/voices"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/phoenix.yaml)")
	serve := flag.Bool("serve", false, "run the headless HTTP API instead of the terminal UI")
	flag.Parse()

	if *showVersion {
		fmt.Printf("phoenix %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging. The TUI owns the terminal, so interactive
	// runs log to a file.
	if !*serve && cfg.Logging.File == "" {
		cfg.Logging.File = "phoenix.log"
	}
	if err := config.SetupLogging(cfg.Logging); err != nil {
		slog.Error("failed to setup logging", "error", err)
		os.Exit(1)
	}
	slog.Info("phoenix starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize the synthesis backend.
	var engine tts.Synthesizer
	switch cfg.Engine.Backend {
	case "kokoro":
		engine = kokoro.New(cfg.Engine.Kokoro)
		slog.Info("using kokoro engine",
			"endpoint", cfg.Engine.Kokoro.Endpoint, "model", cfg.Engine.Kokoro.Model)
	case "piper":
		engine = piper.New(cfg.Engine.Piper)
		slog.Info("using piper engine", "endpoint", cfg.Engine.Piper.Endpoint)
	default:
		slog.Error("unknown engine backend", "backend", cfg.Engine.Backend)
		os.Exit(1)
	}
	defer engine.Close()

	// Open the output device and start the playback queue.
	player, err := audio.NewPlayer(cfg.Audio.QueueSize)
	if err != nil {
		slog.Error("failed to initialize audio output", "error", err)
		os.Exit(1)
	}
	// The queue outlives the signal context: clips already accepted are
	// either drained (serve mode) or cut after the in-flight one (Close).
	defer player.Close()
	player.Start(context.Background())

	// Wire the pipeline.
	histLog := history.New(cfg.History.File)
	speaker := speak.New(engine, player, histLog)

	// Load the voice catalog and the persisted selections.
	voiceList, err := voices.LoadList(cfg.Voices.File)
	if err != nil {
		slog.Warn("voices file not loaded, voice cycling disabled", "error", err)
	}
	prefs := voices.LoadPrefs(cfg.Voices.PrefsFile, voiceList)

	if *serve {
		runServer(ctx, cfg, speaker, prefs)
		// Play out whatever the API accepted before the shutdown signal.
		player.Drain()
		return
	}

	replay, err := histLog.Tail(cfg.History.Replay)
	if err != nil {
		slog.Warn("history replay failed", "error", err)
	}

	if err := ui.Run(speaker, voiceList, prefs, cfg.Voices.PrefsFile, replay); err != nil {
		slog.Error("ui failed", "error", err)
		os.Exit(1)
	}
	slog.Info("phoenix stopped")
}

// runServer runs the headless HTTP mode until the shutdown signal.
func runServer(ctx context.Context, cfg *config.Config, speaker *speak.Speaker, prefs voices.Prefs) {
	srv := server.New(cfg.Server.Port, speaker, prefs)

	// Probe the engine in the background; readiness flips when it answers.
	go func() {
		voice := tts.VoiceSpec{Primary: prefs.Voice1, Secondary: prefs.Voice2, Blend: prefs.Blend}
		if err := speaker.Probe(ctx, voice); err != nil {
			slog.Error("engine probe failed", "error", err)
			return
		}
		srv.SetReady(true)
		slog.Info("phoenix ready", "engine", speaker.Engine(), "port", cfg.Server.Port)
	}()

	if err := srv.ListenAndServe(ctx); err != nil {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("phoenix stopped")
}
