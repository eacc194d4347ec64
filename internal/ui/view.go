package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// chromeLines is everything on screen that isn't the history viewport.
const chromeLines = 12

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	focusedLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#7D56F4")).
				Bold(true)

	historyStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Phoenix TTS"))
	b.WriteString("  ")
	b.WriteString(m.renderEngine())
	b.WriteString("\n\n")

	b.WriteString(m.renderLabel("Say", focusInput))
	b.WriteString(" ")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	b.WriteString(m.renderLabel("Voice 1", focusVoice1))
	b.WriteString(" " + m.prefs.Voice1)
	b.WriteString("   ")
	b.WriteString(m.renderLabel("Voice 2", focusVoice2))
	b.WriteString(" " + m.prefs.Voice2)
	b.WriteString("\n")

	b.WriteString(m.renderLabel("Blend", focusBlend))
	b.WriteString(" " + m.renderBlend())
	b.WriteString("\n\n")

	if m.ready {
		b.WriteString(historyStyle.Render(m.history.View()))
		b.WriteString("\n")
	}

	if m.lastErr != "" {
		b.WriteString(errorStyle.Render("! " + m.lastErr))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter speak · tab switch field · ←/→ adjust · ctrl+c quit"))

	return b.String()
}

func (m Model) renderEngine() string {
	switch m.engine {
	case engineReady:
		status := activeStyle.Render("engine " + m.speaker.Engine() + " ready")
		if m.pending > 0 {
			return m.spinner.View() + " " + status
		}
		return status
	case engineFailed:
		return errorStyle.Render("engine unavailable: " + m.engineErr)
	default:
		return m.spinner.View() + " " + statusStyle.Render("loading engine...")
	}
}

func (m Model) renderLabel(name string, f focus) string {
	label := name + ":"
	if m.focused == f {
		return focusedLabelStyle.Render("▸ " + label)
	}
	return labelStyle.Render("  " + label)
}

// renderBlend draws the primary/secondary mix as a gauge:
// Voice 1 ████████░░░░ Voice 2.
func (m Model) renderBlend() string {
	const barWidth = 20
	filled := m.prefs.Blend * barWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("[%s] %d%% voice 1", bar, m.prefs.Blend)
}
