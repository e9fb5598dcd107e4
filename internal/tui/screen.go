package tui

import "github.com/verte-zerg/moviequiz/internal/model"

type screenMode int

const (
	modeLoading screenMode = iota
	modeQuestion
	modeSummary
	modeError
)

// screen keeps what the session asked to display. It implements session.Presenter.
type screen struct {
	mode         screenMode
	loading      bool
	inputEnabled bool

	step     model.Step
	summary  model.RoundSummary
	notice   model.ErrorNotice
	feedback *bool

	// poster cache, keyed by render size
	posterArt  string
	posterCols int
	posterRows int
}

func (s *screen) ShowStep(step model.Step) {
	s.mode = modeQuestion
	s.step = step
	s.feedback = nil
	s.posterArt = ""
}

func (s *screen) ShowSummary(summary model.RoundSummary) {
	s.mode = modeSummary
	s.summary = summary
	s.feedback = nil
}

func (s *screen) ShowError(notice model.ErrorNotice) {
	s.mode = modeError
	s.notice = notice
	s.feedback = nil
}

func (s *screen) SetLoading(on bool) {
	s.loading = on
	if on && s.mode != modeQuestion {
		s.mode = modeLoading
	}
}

func (s *screen) ShowFeedback(correct bool) {
	s.feedback = &correct
}

func (s *screen) ClearFeedback() {
	s.feedback = nil
}

func (s *screen) SetInputEnabled(enabled bool) {
	s.inputEnabled = enabled
}
