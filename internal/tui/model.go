// Package tui provides the Bubble Tea quiz interface.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/moviequiz/internal/poster"
	"github.com/verte-zerg/moviequiz/internal/session"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	maxCardWidth  = 60
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	counterStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	titleStyle     = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#8C8C8C"))
	questionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	correctColor   = lipgloss.Color("#60C27A")
	incorrectColor = lipgloss.Color("#FF4D4F")
	neutralColor   = lipgloss.Color("#3A3A3A")
	frameStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder())
	cardStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1A1A1A")).
			Background(lipgloss.Color("#C89A3A")).
			Padding(0, 2)
)

// Model implements the Bubble Tea quiz UI.
type Model struct {
	machine *session.Machine
	screen  *screen

	spinner  spinner.Model
	progress progress.Model
	help     help.Model
	keys     keyMap

	width  int
	height int
}

// NewModel constructs a quiz TUI model driving a fresh session.
func NewModel(source session.QuestionSource, recorder session.Recorder, cfg session.Config) *Model {
	scr := &screen{}
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(counterStyle),
	)
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	return &Model{
		machine:  session.New(source, recorder, scr, cfg),
		screen:   scr,
		spinner:  sp,
		progress: bar,
		help:     help.New(),
		keys:     defaultKeyMap(),
		width:    defaultWidth,
		height:   defaultHeight,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.machine.Start())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, m.machine.Update(msg)
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.keys.forMode(m.screen.mode, m.screen.inputEnabled)
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Yes):
		return m.machine.Answer(true)
	case key.Matches(msg, m.keys.No):
		return m.machine.Answer(false)
	case key.Matches(msg, m.keys.Confirm):
		if m.screen.mode == modeSummary {
			return m.machine.Reset()
		}
		return m.machine.Retry()
	case key.Matches(msg, m.keys.Retry):
		return m.machine.Retry()
	default:
		return nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	m.keys.forMode(m.screen.mode, m.screen.inputEnabled)
	var body string
	switch m.screen.mode {
	case modeQuestion:
		body = m.renderQuestion()
	case modeSummary:
		body = m.renderCard(m.screen.summary.Title, m.screen.summary.Message, m.screen.summary.ButtonText)
	case modeError:
		body = m.renderCard(m.screen.notice.Title, m.screen.notice.Message, m.screen.notice.ButtonText)
	default:
		body = m.spinner.View() + " Loading movies..."
	}
	footer := footerStyle.Render(m.help.View(m.keys))
	if m.height < 3 {
		return body
	}
	main := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, body)
	return main + "\n" + lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
}

func (m *Model) contentWidth() int {
	w := int(float64(m.width) * 0.70)
	if w > maxCardWidth {
		w = maxCardWidth
	}
	if w < 10 {
		w = 10
	}
	return w
}

func (m *Model) renderQuestion() string {
	step := m.screen.step
	width := m.contentWidth()

	header := headerStyle.Render("Question") + " " + counterStyle.Render(step.Counter)
	if m.screen.loading {
		header += " " + m.spinner.View()
	}
	m.progress.Width = width
	bar := m.progress.ViewAs(m.roundProgress())

	// header, bar, title, blank, question, frame border
	reserved := 8 + strings.Count(wrapText(step.Text, width), "\n")
	posterRows := m.height - reserved
	if posterRows < 3 {
		posterRows = 3
	}
	art := m.posterArt(width-2, posterRows)
	frame := frameStyle.BorderForeground(m.feedbackColor()).Render(art)

	lines := []string{header, bar}
	if step.Title != "" {
		lines = append(lines, titleStyle.Render(truncate(step.Title, width)))
	}
	lines = append(lines, frame, "", questionStyle.Render(wrapText(step.Text, width)))
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) posterArt(cols, rows int) string {
	s := m.screen
	if s.posterArt == "" || s.posterCols != cols || s.posterRows != rows {
		s.posterArt = poster.Render(s.step.Image, cols, rows)
		s.posterCols = cols
		s.posterRows = rows
	}
	return s.posterArt
}

func (m *Model) feedbackColor() lipgloss.Color {
	if m.screen.feedback == nil {
		return neutralColor
	}
	if *m.screen.feedback {
		return correctColor
	}
	return incorrectColor
}

func (m *Model) roundProgress() float64 {
	total := m.machine.Total()
	if total <= 0 {
		return 0
	}
	done := m.machine.Index()
	if m.screen.feedback != nil {
		done++
	}
	return float64(done) / float64(total)
}

func (m *Model) renderCard(title, message, button string) string {
	width := m.contentWidth()
	content := lipgloss.JoinVertical(lipgloss.Center,
		headerStyle.Render(title),
		"",
		wrapText(message, width-6),
		"",
		buttonStyle.Render(button),
	)
	if m.screen.loading {
		content = lipgloss.JoinVertical(lipgloss.Center, content, "", m.spinner.View())
	}
	return cardStyle.Render(content)
}

// Summary returns the text of the last round summary, if any.
func (m *Model) Summary() string {
	if m.screen.summary.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s\n%s", m.screen.summary.Title, m.screen.summary.Message)
}
