// Package session drives a quiz round: it requests questions, scores answers
// and commits finished rounds to statistics.
package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/moviequiz/internal/model"
)

// State is the round lifecycle stage.
type State int

const (
	StateLoading State = iota
	StateAwaitingAnswer
	StateScoring
	StateRoundComplete
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	case StateScoring:
		return "scoring"
	case StateRoundComplete:
		return "round-complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	DefaultQuestions      = 10
	DefaultFeedbackDelay  = time.Second
	DefaultRequestTimeout = 15 * time.Second

	recordTimeout = 5 * time.Second
	dateLayout    = "02.01.06 15:04"
)

// QuestionSource produces questions from a movie catalog.
type QuestionSource interface {
	LoadCatalog(ctx context.Context) error
	Next(ctx context.Context) (model.Question, error)
}

// Recorder persists finished rounds and returns the updated statistics.
type Recorder interface {
	Record(ctx context.Context, correct, total int) (model.StatsState, error)
}

// Presenter renders machine output. All calls happen on the Update goroutine.
type Presenter interface {
	ShowStep(step model.Step)
	ShowSummary(summary model.RoundSummary)
	ShowError(notice model.ErrorNotice)
	SetLoading(on bool)
	ShowFeedback(correct bool)
	ClearFeedback()
	SetInputEnabled(enabled bool)
}

// Config controls round length and timings.
type Config struct {
	Questions      int
	FeedbackDelay  time.Duration
	RequestTimeout time.Duration
	ShowTitle      bool
	Logger         *log.Logger
}

// Machine is the round state machine. It is not safe for concurrent use;
// drive it from a single Bubble Tea Update loop.
type Machine struct {
	source    QuestionSource
	recorder  Recorder
	presenter Presenter
	cfg       Config
	logger    *log.Logger

	state        State
	index        int
	correct      int
	current      *model.Question
	locked       bool
	requesting   bool
	catalogReady bool
	seq          int

	committing bool
	committed  bool
	summary    model.RoundSummary
}

// New builds a machine. Zero config values fall back to defaults, except a
// zero FeedbackDelay which advances immediately.
func New(source QuestionSource, recorder Recorder, presenter Presenter, cfg Config) *Machine {
	if cfg.Questions <= 0 {
		cfg.Questions = DefaultQuestions
	}
	if cfg.FeedbackDelay < 0 {
		cfg.FeedbackDelay = 0
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Machine{
		source:    source,
		recorder:  recorder,
		presenter: presenter,
		cfg:       cfg,
		logger:    logger,
	}
}

// State returns the current stage.
func (m *Machine) State() State { return m.state }

// Index returns the zero-based index of the current question.
func (m *Machine) Index() int { return m.index }

// Correct returns the number of correct answers so far.
func (m *Machine) Correct() int { return m.correct }

// Total returns the round length.
func (m *Machine) Total() int { return m.cfg.Questions }

// Locked reports whether answers are currently ignored.
func (m *Machine) Locked() bool { return m.locked }

// Start begins loading the catalog.
func (m *Machine) Start() tea.Cmd {
	m.resetCounters()
	m.catalogReady = false
	return m.loadCatalog()
}

// Update handles machine messages and returns follow-up commands.
// Unknown messages are ignored.
func (m *Machine) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case CatalogLoadedMsg:
		m.requesting = false
		m.catalogReady = true
		return m.requestQuestion()
	case CatalogFailedMsg:
		m.requesting = false
		m.catalogReady = false
		m.fail(msg.Err)
		return nil
	case QuestionMsg:
		return m.onQuestion(msg)
	case FeedbackDoneMsg:
		return m.onFeedbackDone(msg)
	case RoundRecordedMsg:
		return m.onRoundRecorded(msg)
	default:
		return nil
	}
}

func (m *Machine) onQuestion(msg QuestionMsg) tea.Cmd {
	m.requesting = false
	if msg.Err != nil {
		m.logger.Printf("question request failed: %v", msg.Err)
		m.catalogReady = false
		m.fail(msg.Err)
		return nil
	}
	q := msg.Question
	m.current = &q
	m.locked = false
	m.state = StateAwaitingAnswer

	step := model.Step{
		Image:   q.Image,
		Text:    q.Text,
		Counter: fmt.Sprintf("%d/%d", m.index+1, m.cfg.Questions),
	}
	if m.cfg.ShowTitle {
		step.Title = q.Title
	}
	m.presenter.SetLoading(false)
	m.presenter.ShowStep(step)
	m.presenter.SetInputEnabled(true)
	return nil
}

// Answer scores the user's answer for the current question. It is a no-op
// unless a question is on screen and input is unlocked.
func (m *Machine) Answer(given bool) tea.Cmd {
	if m.state != StateAwaitingAnswer || m.current == nil || m.locked {
		return nil
	}
	m.locked = true
	m.state = StateScoring
	m.presenter.SetInputEnabled(false)

	isCorrect := given == m.current.CorrectAnswer
	if isCorrect {
		m.correct++
	}
	m.presenter.ShowFeedback(isCorrect)

	m.seq++
	return feedbackCmd(m.cfg.FeedbackDelay, m.seq)
}

func feedbackCmd(delay time.Duration, seq int) tea.Cmd {
	if delay <= 0 {
		return func() tea.Msg {
			return FeedbackDoneMsg{seq: seq}
		}
	}
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return FeedbackDoneMsg{seq: seq}
	})
}

func (m *Machine) onFeedbackDone(msg FeedbackDoneMsg) tea.Cmd {
	if msg.seq != m.seq || m.state != StateScoring {
		return nil
	}
	m.presenter.ClearFeedback()
	if m.index >= m.cfg.Questions-1 {
		m.state = StateRoundComplete
		return m.recordRound()
	}
	m.index++
	return m.requestQuestion()
}

// recordRound commits the finished round off the Update goroutine.
func (m *Machine) recordRound() tea.Cmd {
	if m.committed || m.committing {
		return nil
	}
	m.committing = true
	m.presenter.SetLoading(true)

	recorder := m.recorder
	correct, total, seq := m.correct, m.cfg.Questions, m.seq
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		state, err := recorder.Record(ctx, correct, total)
		return RoundRecordedMsg{State: state, Err: err, seq: seq}
	}
}

func (m *Machine) onRoundRecorded(msg RoundRecordedMsg) tea.Cmd {
	if msg.seq != m.seq || m.state != StateRoundComplete || m.committed {
		return nil
	}
	m.committing = false
	m.presenter.SetLoading(false)
	m.finish(msg.State, msg.Err)
	m.presenter.ShowSummary(m.summary)
	return nil
}

func (m *Machine) finish(state model.StatsState, err error) {
	if err != nil {
		m.logger.Printf("failed to record round: %v", err)
	}
	m.committed = true
	m.summary = model.RoundSummary{
		Title:         "This round is over!",
		ButtonText:    "Play again",
		Correct:       m.correct,
		Total:         m.cfg.Questions,
		GamesCount:    state.GamesCount,
		BestGame:      state.BestGame,
		TotalAccuracy: state.TotalAccuracy,
	}
	m.summary.Message = FormatResults(m.summary)
}

// ResultsMessage returns the summary of a completed round, committing it to
// statistics first if that has not happened yet. It reports false before the
// round is complete or while the commit is still in flight.
func (m *Machine) ResultsMessage() (model.RoundSummary, bool) {
	if m.state != StateRoundComplete {
		return model.RoundSummary{}, false
	}
	if m.committed {
		return m.summary, true
	}
	if m.committing {
		return model.RoundSummary{}, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	state, err := m.recorder.Record(ctx, m.correct, m.cfg.Questions)
	m.finish(state, err)
	return m.summary, true
}

// FormatResults renders the multi-line round summary text.
func FormatResults(s model.RoundSummary) string {
	return fmt.Sprintf("Your result: %d/%d\nGames played: %d\nRecord: %d/%d (%s)\nAverage accuracy: %.2f%%",
		s.Correct, s.Total,
		s.GamesCount,
		s.BestGame.Correct, s.BestGame.Total, s.BestGame.Date.Local().Format(dateLayout),
		s.TotalAccuracy,
	)
}

// Reset starts a new round on the loaded catalog.
func (m *Machine) Reset() tea.Cmd {
	m.resetCounters()
	if !m.catalogReady {
		return m.loadCatalog()
	}
	return m.requestQuestion()
}

// Retry repeats whatever failed: the catalog load or the question request.
func (m *Machine) Retry() tea.Cmd {
	if m.state != StateLoading || m.requesting {
		return nil
	}
	if !m.catalogReady {
		return m.loadCatalog()
	}
	return m.requestQuestion()
}

func (m *Machine) resetCounters() {
	m.index = 0
	m.correct = 0
	m.current = nil
	m.locked = false
	m.committing = false
	m.committed = false
	m.summary = model.RoundSummary{}
	m.state = StateLoading
	// Invalidates any pending feedback tick or round commit.
	m.seq++
}

func (m *Machine) loadCatalog() tea.Cmd {
	if m.requesting {
		return nil
	}
	m.requesting = true
	m.state = StateLoading
	m.presenter.SetInputEnabled(false)
	m.presenter.SetLoading(true)

	source := m.source
	timeout := m.cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := source.LoadCatalog(ctx); err != nil {
			return CatalogFailedMsg{Err: err}
		}
		return CatalogLoadedMsg{}
	}
}

func (m *Machine) requestQuestion() tea.Cmd {
	if m.requesting {
		return nil
	}
	m.requesting = true
	m.state = StateLoading
	m.current = nil
	m.presenter.SetInputEnabled(false)
	m.presenter.SetLoading(true)

	source := m.source
	timeout := m.cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		q, err := source.Next(ctx)
		return QuestionMsg{Question: q, Err: err}
	}
}

func (m *Machine) fail(err error) {
	m.state = StateLoading
	m.presenter.SetLoading(false)
	m.presenter.ShowError(ErrorNotice(err))
}

// ErrorNotice builds the notice shown when questions cannot be produced.
func ErrorNotice(err error) model.ErrorNotice {
	text := "unknown error"
	if err != nil {
		text = err.Error()
	}
	return model.ErrorNotice{
		Title:      "Error",
		Message:    "Failed to load data:\n" + text,
		ButtonText: "Try again",
	}
}
