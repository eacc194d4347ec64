// Package audio plays synthesized PCM through the system's default output
// device using PortAudio.
//
// Playback is sequential: a single goroutine drains a bounded clip queue, so
// a new utterance never interrupts the one currently playing. Enqueueing is
// non-blocking — when the queue is full the clip is rejected rather than
// stalling the caller.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// framesPerBuffer is the PortAudio write granularity (~40ms at 24kHz).
const framesPerBuffer = 960

// ErrQueueFull is returned by Enqueue when the playback queue is at capacity.
var ErrQueueFull = errors.New("playback queue full")

// ErrClosed is returned by Enqueue after the player has been closed.
var ErrClosed = errors.New("player closed")

// Clip is one utterance worth of audio waiting for the output device.
type Clip struct {
	// ID is the utterance identifier, carried through for logging.
	ID string

	// PCM is raw 16-bit little-endian audio.
	PCM []byte

	// SampleRate is the clip's sample rate in Hz.
	SampleRate int

	// Channels is the number of interleaved channels.
	Channels int
}

// Player owns the PortAudio session and the playback queue. The queue channel
// is never closed; shutdown is signalled through quit and draining so a
// concurrent Enqueue can never hit a closed channel.
type Player struct {
	queue chan Clip

	mu         sync.Mutex
	closed     bool
	terminated bool

	quit     chan struct{} // stop after the in-flight clip
	draining chan struct{} // play out the queue, then stop
	done     chan struct{}
}

// NewPlayer initializes PortAudio and creates a player with the given queue
// capacity. The caller must Close the player to release the device.
func NewPlayer(queueSize int) (*Player, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}
	return newPlayer(queueSize), nil
}

func newPlayer(queueSize int) *Player {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Player{
		queue:    make(chan Clip, queueSize),
		quit:     make(chan struct{}),
		draining: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the playback loop. It returns immediately; the loop runs
// until the context is cancelled, Drain plays out the queue, or Close is
// called.
func (p *Player) Start(ctx context.Context) {
	go p.playLoop(ctx)
}

// Enqueue adds a clip to the playback queue without blocking.
func (p *Player) Enqueue(clip Clip) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- clip:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of clips waiting in the queue.
func (p *Player) Pending() int {
	return len(p.queue)
}

// Drain stops accepting new clips, plays out everything already queued, and
// blocks until the playback loop exits. Close must still be called afterwards
// to release the device.
func (p *Player) Drain() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.draining)
	}
	p.mu.Unlock()

	<-p.done
}

// Close stops the playback loop after the in-flight clip, discards anything
// still queued, and terminates PortAudio.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return nil
	}
	p.terminated = true
	if !p.closed {
		p.closed = true
		close(p.quit)
	}
	p.mu.Unlock()

	<-p.done
	return portaudio.Terminate()
}

func (p *Player) playLoop(ctx context.Context) {
	defer close(p.done)

	for {
		// Check stop signals first so a pending clip can't win the
		// select below after Close or cancellation.
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case <-p.draining:
			p.playPending()
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case <-p.draining:
			p.playPending()
			return
		case clip := <-p.queue:
			if err := p.playClip(clip); err != nil {
				slog.Error("playback failed", "clip_id", clip.ID, "error", err)
			}
		}
	}
}

// playPending plays everything already queued. Enqueue rejects new clips by
// the time this runs, so the queue only shrinks.
func (p *Player) playPending() {
	for {
		select {
		case clip := <-p.queue:
			if err := p.playClip(clip); err != nil {
				slog.Error("playback failed", "clip_id", clip.ID, "error", err)
			}
		default:
			return
		}
	}
}

// playClip opens a fresh output stream for the clip's format, writes the
// samples, and blocks until the clip has fully played. Streams are per-clip
// because consecutive utterances may carry different sample rates.
func (p *Player) playClip(clip Clip) error {
	samples := pcmToInt16(clip.PCM)
	if len(samples) == 0 {
		return nil
	}
	channels := clip.Channels
	if channels <= 0 {
		channels = 1
	}

	out := make([]int16, framesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(clip.SampleRate), framesPerBuffer, out)
	if err != nil {
		return fmt.Errorf("opening output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting output stream: %w", err)
	}
	defer stream.Stop()

	slog.Debug("playing clip", "clip_id", clip.ID,
		"samples", len(samples), "rate", clip.SampleRate, "channels", channels)

	for off := 0; off < len(samples); off += len(out) {
		n := copy(out, samples[off:])
		// Zero-pad the final partial buffer.
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("writing to output stream: %w", err)
		}
	}

	return nil
}
