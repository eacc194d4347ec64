package ui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenix-tts/phoenix/internal/speak"
	"github.com/phoenix-tts/phoenix/internal/tts"
	"github.com/phoenix-tts/phoenix/internal/voices"
)

type fakeSpeaker struct {
	lastText  string
	lastVoice tts.VoiceSpec
	err       error
	probeErr  error
}

func (f *fakeSpeaker) Speak(_ context.Context, text string, voice tts.VoiceSpec) (*speak.Result, error) {
	f.lastText = text
	f.lastVoice = voice
	if f.err != nil {
		return nil, f.err
	}
	return &speak.Result{
		ID:          "utt-1",
		Text:        text,
		HistoryLine: "[2026-01-01 12:00:00] " + text,
		Duration:    time.Second,
	}, nil
}

func (f *fakeSpeaker) Probe(context.Context, tts.VoiceSpec) error { return f.probeErr }
func (f *fakeSpeaker) Engine() string                             { return "fake" }

func newTestModel(t *testing.T, speaker Speaker) Model {
	t.Helper()
	prefs := voices.Prefs{Voice1: "af_bella", Voice2: "af_sky", Blend: 50}
	m := NewModel(speaker, []string{"af_bella", "af_sky", "am_adam"}, prefs,
		filepath.Join(t.TempDir(), "prefs.json"), nil)

	// Give the viewport a size, as the terminal would.
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func TestSubmitSpeaksAndClearsInput(t *testing.T) {
	speaker := &fakeSpeaker{}
	m := newTestModel(t, speaker)

	m.input.SetValue("hello world")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	// Input clears immediately; synthesis runs in the command.
	assert.Empty(t, m.input.Value())
	assert.Equal(t, 1, m.pending)
	require.NotNil(t, cmd)

	msg := cmd()
	done, ok := msg.(speakDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Equal(t, "hello world", speaker.lastText)
	assert.Equal(t, tts.VoiceSpec{Primary: "af_bella", Secondary: "af_sky", Blend: 50}, speaker.lastVoice)

	updated, _ = m.Update(msg)
	m = updated.(Model)
	assert.Equal(t, 0, m.pending)
	require.Len(t, m.historyLines, 1)
	assert.Contains(t, m.historyLines[0], "hello world")
}

func TestSubmitWhileSynthesisInFlight(t *testing.T) {
	speaker := &fakeSpeaker{}
	m := newTestModel(t, speaker)

	m.input.SetValue("first line")
	updated, cmd1 := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.NotNil(t, cmd1)

	// A second line can be submitted before the first finishes; each gets
	// its own synthesis command.
	m.input.SetValue("second line")
	updated, cmd2 := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.NotNil(t, cmd2)
	assert.Equal(t, 2, m.pending)

	updated, _ = m.Update(cmd1())
	m = updated.(Model)
	assert.Equal(t, 1, m.pending)

	updated, _ = m.Update(cmd2())
	m = updated.(Model)
	assert.Equal(t, 0, m.pending)
	require.Len(t, m.historyLines, 2)
}

func TestSubmitIgnoresBlankInput(t *testing.T) {
	m := newTestModel(t, &fakeSpeaker{})

	m.input.SetValue("   ")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	assert.Equal(t, 0, m.pending)
	assert.Nil(t, cmd)
}

func TestSpeakErrorShownInView(t *testing.T) {
	speaker := &fakeSpeaker{err: errors.New("engine offline")}
	m := newTestModel(t, speaker)

	m.input.SetValue("hello")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.NotNil(t, cmd)

	updated, _ = m.Update(cmd())
	m = updated.(Model)

	assert.Equal(t, 0, m.pending)
	assert.Contains(t, m.View(), "engine offline")
}

func TestVoiceCycling(t *testing.T) {
	m := newTestModel(t, &fakeSpeaker{})

	// Tab to voice 1, cycle forward.
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	assert.Equal(t, focusVoice1, m.focused)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = updated.(Model)
	assert.Equal(t, "af_sky", m.prefs.Voice1)

	// Wrap backwards past the start of the catalog.
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m = updated.(Model)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m = updated.(Model)
	assert.Equal(t, "am_adam", m.prefs.Voice1)
}

func TestBlendAdjustPersistsPrefs(t *testing.T) {
	prefsPath := filepath.Join(t.TempDir(), "prefs.json")
	prefs := voices.Prefs{Voice1: "af_bella", Voice2: "af_sky", Blend: 50}
	m := NewModel(&fakeSpeaker{}, []string{"af_bella", "af_sky"}, prefs, prefsPath, nil)

	m = m.setFocus(focusBlend)
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = updated.(Model)
	assert.Equal(t, 55, m.prefs.Blend)

	// The change hit the preference file immediately.
	saved := voices.LoadPrefs(prefsPath, nil)
	assert.Equal(t, 55, saved.Blend)
}

func TestBlendClamping(t *testing.T) {
	m := newTestModel(t, &fakeSpeaker{})
	m = m.setFocus(focusBlend)
	m.prefs.Blend = 100

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = updated.(Model)
	assert.Equal(t, 100, m.prefs.Blend)
}

func TestEngineProbeStates(t *testing.T) {
	m := newTestModel(t, &fakeSpeaker{})
	assert.Contains(t, m.View(), "loading engine")

	updated, _ := m.Update(engineProbeMsg{err: nil})
	m = updated.(Model)
	assert.Contains(t, m.View(), "engine fake ready")

	updated, _ = m.Update(engineProbeMsg{err: errors.New("connection refused")})
	m = updated.(Model)
	assert.Contains(t, m.View(), "engine unavailable")
}

func TestHistoryReplayShownAtStartup(t *testing.T) {
	replay := []string{"[2026-01-01 10:00:00] good morning"}
	m := NewModel(&fakeSpeaker{}, []string{"af_bella"}, voices.Prefs{Voice1: "af_bella"},
		filepath.Join(t.TempDir(), "prefs.json"), replay)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updated.(Model)

	assert.Contains(t, m.View(), "good morning")
}
