// Package ui provides the phoenix terminal front-end: a text box wired to
// the speak pipeline, two voice selectors with a blend gauge, and a scrolling
// pane of everything spoken so far.
package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/phoenix-tts/phoenix/internal/speak"
	"github.com/phoenix-tts/phoenix/internal/tts"
	"github.com/phoenix-tts/phoenix/internal/voices"
)

// speakTimeout bounds a single synthesis call.
const speakTimeout = 60 * time.Second

// blendStep is how far one keypress moves the blend gauge.
const blendStep = 5

// Speaker is the part of the speak pipeline the UI needs.
type Speaker interface {
	Speak(ctx context.Context, text string, voice tts.VoiceSpec) (*speak.Result, error)
	Probe(ctx context.Context, voice tts.VoiceSpec) error
	Engine() string
}

// focus identifies which control receives navigation keys.
type focus int

const (
	focusInput focus = iota
	focusVoice1
	focusVoice2
	focusBlend
	focusCount
)

type engineState int

const (
	engineLoading engineState = iota
	engineReady
	engineFailed
)

// Messages for tea.Cmd
type speakDoneMsg struct {
	result *speak.Result
	err    error
}

type engineProbeMsg struct{ err error }

// Model is the bubbletea application state.
type Model struct {
	speaker   Speaker
	voices    []string
	prefs     voices.Prefs
	prefsPath string

	input   textinput.Model
	spinner spinner.Model
	history viewport.Model

	focused      focus
	pending      int
	engine       engineState
	engineErr    string
	lastErr      string
	historyLines []string
	width        int
	height       int
	ready        bool
}

// NewModel creates the UI model. replay is the history tail shown at startup.
func NewModel(speaker Speaker, voiceList []string, prefs voices.Prefs, prefsPath string, replay []string) Model {
	ti := textinput.New()
	ti.Placeholder = "Type something to speak..."
	ti.Focus()
	ti.CharLimit = 500

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		speaker:      speaker,
		voices:       voiceList,
		prefs:        prefs,
		prefsPath:    prefsPath,
		input:        ti,
		spinner:      s,
		historyLines: replay,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.probeEngine(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "tab":
			m = m.setFocus((m.focused + 1) % focusCount)
			return m, nil

		case "shift+tab":
			m = m.setFocus((m.focused + focusCount - 1) % focusCount)
			return m, nil

		case "enter":
			if m.focused == focusInput {
				text := m.input.Value()
				// Clear immediately and keep focus so the next line can be
				// submitted while earlier ones synthesize; the playback
				// queue serializes the output.
				m.input.SetValue("")
				m.lastErr = ""
				if strings.TrimSpace(text) != "" {
					m.pending++
					return m, m.speakCmd(text)
				}
			}
			return m, nil

		case "left", "right":
			if m.focused != focusInput {
				m = m.adjust(msg.String() == "right")
				return m, nil
			}

		case "esc", "q":
			if m.focused != focusInput {
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		historyHeight := msg.Height - chromeLines
		if historyHeight < 3 {
			historyHeight = 3
		}
		if !m.ready {
			m.history = viewport.New(msg.Width-4, historyHeight)
			m.ready = true
		} else {
			m.history.Width = msg.Width - 4
			m.history.Height = historyHeight
		}
		m.refreshHistory()
		m.input.Width = msg.Width - 8

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case engineProbeMsg:
		if msg.err != nil {
			m.engine = engineFailed
			m.engineErr = msg.err.Error()
		} else {
			m.engine = engineReady
		}

	case speakDoneMsg:
		if m.pending > 0 {
			m.pending--
		}
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		} else {
			m.historyLines = append(m.historyLines, msg.result.HistoryLine)
			m.refreshHistory()
		}
	}

	if m.focused == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) setFocus(f focus) Model {
	m.focused = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	return m
}

// adjust handles left/right on the focused selector and persists the change.
func (m Model) adjust(forward bool) Model {
	switch m.focused {
	case focusVoice1:
		m.prefs.Voice1 = cycleVoice(m.voices, m.prefs.Voice1, forward)
	case focusVoice2:
		m.prefs.Voice2 = cycleVoice(m.voices, m.prefs.Voice2, forward)
	case focusBlend:
		if forward {
			m.prefs.Blend += blendStep
		} else {
			m.prefs.Blend -= blendStep
		}
		if m.prefs.Blend > 100 {
			m.prefs.Blend = 100
		}
		if m.prefs.Blend < 0 {
			m.prefs.Blend = 0
		}
	}
	// Persisted on every change, matching the preference semantics of the
	// prefs store: the next session starts where this one left off.
	_ = voices.SavePrefs(m.prefsPath, m.prefs)
	return m
}

// cycleVoice steps through the catalog, wrapping at the ends.
func cycleVoice(catalog []string, current string, forward bool) string {
	if len(catalog) == 0 {
		return current
	}
	idx := 0
	for i, v := range catalog {
		if v == current {
			idx = i
			break
		}
	}
	if forward {
		idx = (idx + 1) % len(catalog)
	} else {
		idx = (idx + len(catalog) - 1) % len(catalog)
	}
	return catalog[idx]
}

func (m *Model) refreshHistory() {
	if !m.ready {
		return
	}
	m.history.SetContent(strings.Join(m.historyLines, "\n"))
	m.history.GotoBottom()
}

func (m Model) voiceSpec() tts.VoiceSpec {
	return tts.VoiceSpec{
		Primary:   m.prefs.Voice1,
		Secondary: m.prefs.Voice2,
		Blend:     m.prefs.Blend,
	}
}

func (m Model) speakCmd(text string) tea.Cmd {
	voice := m.voiceSpec()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), speakTimeout)
		defer cancel()
		result, err := m.speaker.Speak(ctx, text, voice)
		return speakDoneMsg{result: result, err: err}
	}
}

func (m Model) probeEngine() tea.Cmd {
	voice := m.voiceSpec()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), speakTimeout)
		defer cancel()
		return engineProbeMsg{err: m.speaker.Probe(ctx, voice)}
	}
}

// Run starts the terminal UI and blocks until the user quits.
func Run(speaker Speaker, voiceList []string, prefs voices.Prefs, prefsPath string, replay []string) error {
	p := tea.NewProgram(
		NewModel(speaker, voiceList, prefs, prefsPath, replay),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
