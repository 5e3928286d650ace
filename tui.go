package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dikt/pipeline"
)

// TUI message types
type StateMsg struct {
	State pipeline.State
	Kind  pipeline.Kind
}
type TranscriptMsg struct{ Text string }
type ModeLineMsg struct{ Text string }   // provider/format/language info
type DeviceLineMsg struct{ Text string } // microphone device name
type ComboLineMsg struct{ Text string }  // active hotkey combo
type tickMsg time.Time

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	styleRec     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleBusy    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleReady   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleErr     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleIdle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleMode    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleText    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleHelp    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	styleHelpKey = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	styleTitle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tuiModel struct {
	state         pipeline.State
	kind          pipeline.Kind
	frame         int
	recordStart   time.Time
	modeLine      string
	deviceLine    string
	comboLine     string
	lastText      string
	msgCount      int
	width, height int
}

func NewTUIProgram() *tea.Program {
	return tea.NewProgram(tuiModel{}, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case StateMsg:
		if msg.State == pipeline.StateRecording && m.state != pipeline.StateRecording {
			m.recordStart = time.Now()
		}
		m.state = msg.State
		m.kind = msg.Kind

	case TranscriptMsg:
		m.msgCount++
		m.lastText = msg.Text

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text

	case ComboLineMsg:
		m.comboLine = msg.Text
	}
	return m, nil
}

func (m tuiModel) statusLine() string {
	switch m.state {
	case pipeline.StateRecording:
		return styleRec.Render(fmt.Sprintf("● REC %.1fs", time.Since(m.recordStart).Seconds()))
	case pipeline.StateTranscribing:
		spin := spinnerFrames[m.frame%len(spinnerFrames)]
		return styleBusy.Render(spin + " transcribing")
	case pipeline.StateReady:
		if m.kind == pipeline.KindInjectionBlocked {
			return styleWarn.Render("⚠ " + kindMessage(m.kind))
		}
		return styleReady.Render("✓ done")
	case pipeline.StateError:
		return styleErr.Render("✗ " + kindMessage(m.kind))
	default:
		if m.kind != pipeline.KindNone {
			return styleWarn.Render("○ idle (" + kindMessage(m.kind) + ")")
		}
		return styleIdle.Render("○ idle")
	}
}

// kindMessage turns a failure kind into a short human-readable line.
func kindMessage(k pipeline.Kind) string {
	switch k {
	case pipeline.KindDeviceUnavailable:
		return "microphone unavailable"
	case pipeline.KindBufferTooShort:
		return "recording too short"
	case pipeline.KindNoCredential:
		return "no API key configured"
	case pipeline.KindNetworkUnreachable:
		return "network unreachable"
	case pipeline.KindProviderError:
		return "provider error"
	case pipeline.KindUnknownProvider:
		return "unknown provider"
	case pipeline.KindInjectionBlocked:
		return "could not insert text"
	default:
		return k.String()
	}
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string
	lines = append(lines, "")
	lines = append(lines, " "+m.statusLine())
	lines = append(lines, "")
	if m.modeLine != "" {
		lines = append(lines, " "+styleMode.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, " "+styleDim.Render(m.deviceLine))
	}
	lines = append(lines, "")

	if m.lastText != "" {
		lines = append(lines, " "+styleTitle.Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount)))
		wrapWidth := m.width - 4
		if wrapWidth < 10 {
			wrapWidth = 10
		}
		for _, line := range wrapText(m.lastText, wrapWidth) {
			lines = append(lines, "  "+styleText.Render(line))
		}
	} else {
		lines = append(lines, " "+styleDim.Render("No transcriptions yet"))
	}

	lines = append(lines, "")
	combo := m.comboLine
	if combo == "" {
		combo = "hotkey"
	}
	lines = append(lines, " "+styleHelpKey.Render(combo)+styleHelp.Render(" hold to record"))
	lines = append(lines, " "+styleHelp.Render("dikt "+version))

	return strings.Join(lines, "\n")
}

// tuiSend delivers a message to the TUI if one is running. Safe before the
// program exists and after it quits.
func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
