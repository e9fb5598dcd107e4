package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/moviequiz/internal/model"
	"github.com/verte-zerg/moviequiz/internal/question"
	"github.com/verte-zerg/moviequiz/internal/stats"
)

type fakeSource struct {
	loadErr   error
	nextErr   error
	answers   []bool
	loadCalls int
	nextCalls int
}

func (f *fakeSource) LoadCatalog(context.Context) error {
	f.loadCalls++
	return f.loadErr
}

func (f *fakeSource) Next(context.Context) (model.Question, error) {
	if f.nextErr != nil {
		return model.Question{}, f.nextErr
	}
	answer := true
	if len(f.answers) > 0 {
		answer = f.answers[f.nextCalls%len(f.answers)]
	}
	f.nextCalls++
	return model.Question{Text: "Is this movie rated higher than 7?", CorrectAnswer: answer, Title: "Movie"}, nil
}

type fakePresenter struct {
	steps     []model.Step
	summaries []model.RoundSummary
	errors    []model.ErrorNotice
	feedback  []bool
	cleared   int
	loading   bool
	input     bool
}

func (p *fakePresenter) ShowStep(step model.Step) { p.steps = append(p.steps, step) }
func (p *fakePresenter) ShowSummary(s model.RoundSummary) { p.summaries = append(p.summaries, s) }
func (p *fakePresenter) ShowError(notice model.ErrorNotice) { p.errors = append(p.errors, notice) }
func (p *fakePresenter) SetLoading(on bool) { p.loading = on }
func (p *fakePresenter) ShowFeedback(correct bool) { p.feedback = append(p.feedback, correct) }
func (p *fakePresenter) ClearFeedback() { p.cleared++ }
func (p *fakePresenter) SetInputEnabled(enabled bool) { p.input = enabled }

type countingRecorder struct {
	calls int
	state model.StatsState
	err   error
}

func (r *countingRecorder) Record(_ context.Context, correct, total int) (model.StatsState, error) {
	r.calls++
	r.state.GamesCount++
	if correct > r.state.BestGame.Correct {
		r.state.BestGame = model.GameRecord{Correct: correct, Total: total, Date: time.Now()}
	}
	return r.state, r.err
}

// drain runs cmd and feeds resulting messages back into the machine until idle.
func drain(t *testing.T, m *Machine, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		if i > 100 {
			t.Fatalf("command chain did not settle")
		}
		cmd = m.Update(cmd())
	}
}

func newTestMachine(src *fakeSource, rec Recorder, questions int) (*Machine, *fakePresenter) {
	p := &fakePresenter{}
	m := New(src, rec, p, Config{Questions: questions})
	return m, p
}

func TestFullRoundReachesCompletion(t *testing.T) {
	src := &fakeSource{answers: []bool{true}}
	rec := &countingRecorder{}
	m, p := newTestMachine(src, rec, 10)

	drain(t, m, m.Start())
	if m.State() != StateAwaitingAnswer {
		t.Fatalf("expected awaiting answer, got %s", m.State())
	}
	if !p.input || p.loading {
		t.Fatalf("expected input enabled and loading off")
	}
	for i := 0; i < 10; i++ {
		if got := p.steps[len(p.steps)-1].Counter; got != fmt.Sprintf("%d/10", i+1) {
			t.Fatalf("unexpected counter %q at %d", got, i)
		}
		drain(t, m, m.Answer(true))
	}
	if m.State() != StateRoundComplete {
		t.Fatalf("expected round complete, got %s", m.State())
	}
	if len(p.steps) != 10 || len(p.summaries) != 1 || p.cleared != 10 {
		t.Fatalf("unexpected presenter calls: steps=%d summaries=%d cleared=%d", len(p.steps), len(p.summaries), p.cleared)
	}
	if m.Correct() != 10 || p.summaries[0].Correct != 10 {
		t.Fatalf("expected 10 correct, got %d", m.Correct())
	}

	again, ok := m.ResultsMessage()
	if !ok {
		t.Fatalf("expected results after round completion")
	}
	if rec.calls != 1 {
		t.Fatalf("expected a single record, got %d", rec.calls)
	}
	if again.GamesCount != 1 || again.Message != p.summaries[0].Message {
		t.Fatalf("second results call changed summary: %+v", again)
	}
	if src.loadCalls != 1 || src.nextCalls != 10 {
		t.Fatalf("unexpected source calls: load=%d next=%d", src.loadCalls, src.nextCalls)
	}
}

func TestAnswerWhileLockedIsIgnored(t *testing.T) {
	src := &fakeSource{answers: []bool{true}}
	m, p := newTestMachine(src, &countingRecorder{}, 3)
	drain(t, m, m.Start())

	cmd := m.Answer(true)
	if cmd == nil {
		t.Fatalf("expected feedback command")
	}
	if !m.Locked() || p.input {
		t.Fatalf("expected input locked after answer")
	}
	if second := m.Answer(true); second != nil {
		t.Fatalf("answer while locked must not return a command")
	}
	if m.Correct() != 1 || m.Index() != 0 || len(p.feedback) != 1 {
		t.Fatalf("locked answer changed state: correct=%d index=%d feedback=%d", m.Correct(), m.Index(), len(p.feedback))
	}
	drain(t, m, cmd)
	if m.Index() != 1 || m.Locked() {
		t.Fatalf("expected advance to next question, index=%d", m.Index())
	}
}

func TestAnswerBeforeQuestionIsIgnored(t *testing.T) {
	m, p := newTestMachine(&fakeSource{}, &countingRecorder{}, 3)
	_ = m.Start()
	if cmd := m.Answer(true); cmd != nil {
		t.Fatalf("answer during loading must be ignored")
	}
	if m.Correct() != 0 || len(p.feedback) != 0 {
		t.Fatalf("answer during loading changed state")
	}
}

func TestWrongAnswerIsNotCounted(t *testing.T) {
	src := &fakeSource{answers: []bool{false}}
	m, p := newTestMachine(src, &countingRecorder{}, 2)
	drain(t, m, m.Start())
	drain(t, m, m.Answer(true))
	if m.Correct() != 0 || len(p.feedback) != 1 || p.feedback[0] {
		t.Fatalf("expected incorrect feedback, got %v", p.feedback)
	}
	drain(t, m, m.Answer(false))
	if m.Correct() != 1 || !p.feedback[1] {
		t.Fatalf("expected correct feedback, got %v", p.feedback)
	}
}

func TestCatalogFailureShowsSingleError(t *testing.T) {
	src := &fakeSource{loadErr: errors.New("network down")}
	m, p := newTestMachine(src, &countingRecorder{}, 10)

	drain(t, m, m.Start())
	if len(p.errors) != 1 {
		t.Fatalf("expected one error notice, got %d", len(p.errors))
	}
	if len(p.steps) != 0 {
		t.Fatalf("expected no steps before retry, got %d", len(p.steps))
	}
	if !strings.Contains(p.errors[0].Message, "network down") || p.errors[0].ButtonText != "Try again" {
		t.Fatalf("unexpected notice: %+v", p.errors[0])
	}
	if p.loading {
		t.Fatalf("loading indicator should be off")
	}

	src.loadErr = nil
	drain(t, m, m.Retry())
	if src.loadCalls != 2 || len(p.steps) != 1 || len(p.errors) != 1 {
		t.Fatalf("retry did not recover: load=%d steps=%d errors=%d", src.loadCalls, len(p.steps), len(p.errors))
	}
}

func TestEmptyCatalogSurfacesError(t *testing.T) {
	src := &fakeSource{nextErr: question.ErrEmptyCatalog}
	m, p := newTestMachine(src, &countingRecorder{}, 10)
	drain(t, m, m.Start())
	if len(p.errors) != 1 || len(p.steps) != 0 {
		t.Fatalf("expected error notice, got errors=%d steps=%d", len(p.errors), len(p.steps))
	}
	if !strings.Contains(p.errors[0].Message, question.ErrEmptyCatalog.Error()) {
		t.Fatalf("unexpected message: %q", p.errors[0].Message)
	}

	src.nextErr = nil
	drain(t, m, m.Retry())
	if src.loadCalls != 2 {
		t.Fatalf("retry after empty catalog should reload, got %d loads", src.loadCalls)
	}
	if m.State() != StateAwaitingAnswer {
		t.Fatalf("expected awaiting answer after retry, got %s", m.State())
	}
}

func TestFiveQuestionScenario(t *testing.T) {
	store := stats.NewMemoryStore()
	best, err := json.Marshal(model.GameRecord{Correct: 2, Total: 5, Date: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ctx := context.Background()
	if err := store.Set(ctx, map[string]string{
		stats.KeyTotalAccuracy: "50",
		stats.KeyGamesCount:    "1",
		stats.KeyBestGame:      string(best),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	agg := stats.NewAggregator(store, store, nil)

	src := &fakeSource{answers: []bool{true}}
	m, p := newTestMachine(src, agg, 5)
	drain(t, m, m.Start())
	for _, given := range []bool{true, true, false, true, false} {
		drain(t, m, m.Answer(given))
	}
	if len(p.summaries) != 1 {
		t.Fatalf("expected summary, got %d", len(p.summaries))
	}
	summary := p.summaries[0]
	if summary.Correct != 3 || summary.Total != 5 {
		t.Fatalf("unexpected result %d/%d", summary.Correct, summary.Total)
	}
	if summary.GamesCount != 2 || math.Abs(summary.TotalAccuracy-55) > 1e-9 {
		t.Fatalf("unexpected stats: games=%d acc=%v", summary.GamesCount, summary.TotalAccuracy)
	}
	if summary.BestGame.Correct != 3 || summary.BestGame.Total != 5 {
		t.Fatalf("unexpected best: %+v", summary.BestGame)
	}
	for _, line := range []string{"Your result: 3/5", "Games played: 2", "Record: 3/5", "Average accuracy: 55.00%"} {
		if !strings.Contains(summary.Message, line) {
			t.Fatalf("message %q missing %q", summary.Message, line)
		}
	}
}

func TestRecordFailureStillReportsRound(t *testing.T) {
	rec := &countingRecorder{err: errors.New("disk full")}
	m, p := newTestMachine(&fakeSource{answers: []bool{true}}, rec, 1)
	drain(t, m, m.Start())
	drain(t, m, m.Answer(true))
	if len(p.summaries) != 1 || p.summaries[0].GamesCount != 1 {
		t.Fatalf("expected summary despite record failure: %+v", p.summaries)
	}
}

func TestResetStartsNewRoundWithoutReload(t *testing.T) {
	src := &fakeSource{answers: []bool{true}}
	rec := &countingRecorder{}
	m, p := newTestMachine(src, rec, 2)
	drain(t, m, m.Start())
	drain(t, m, m.Answer(true))
	drain(t, m, m.Answer(true))
	if m.State() != StateRoundComplete {
		t.Fatalf("expected round complete")
	}

	drain(t, m, m.Reset())
	if m.Index() != 0 || m.Correct() != 0 || m.State() != StateAwaitingAnswer {
		t.Fatalf("reset did not zero counters: index=%d correct=%d state=%s", m.Index(), m.Correct(), m.State())
	}
	if src.loadCalls != 1 {
		t.Fatalf("reset must not reload catalog, loads=%d", src.loadCalls)
	}
	if p.steps[len(p.steps)-1].Counter != "1/2" {
		t.Fatalf("unexpected counter after reset: %q", p.steps[len(p.steps)-1].Counter)
	}
	drain(t, m, m.Answer(true))
	drain(t, m, m.Answer(true))
	if rec.calls != 2 {
		t.Fatalf("expected second round to be recorded, calls=%d", rec.calls)
	}
}

func TestStaleFeedbackTickIgnoredAfterReset(t *testing.T) {
	src := &fakeSource{answers: []bool{true}}
	m, p := newTestMachine(src, &countingRecorder{}, 3)
	drain(t, m, m.Start())

	_ = m.Answer(true)
	stale := FeedbackDoneMsg{seq: m.seq}
	drain(t, m, m.Reset())

	if cmd := m.Update(stale); cmd != nil {
		t.Fatalf("stale tick must not produce a command")
	}
	if m.Index() != 0 || p.cleared != 0 {
		t.Fatalf("stale tick advanced the round: index=%d cleared=%d", m.Index(), p.cleared)
	}
}

func TestSingleRequestInFlight(t *testing.T) {
	m, _ := newTestMachine(&fakeSource{}, &countingRecorder{}, 3)
	if cmd := m.Start(); cmd == nil {
		t.Fatalf("expected catalog command")
	}
	if cmd := m.Retry(); cmd != nil {
		t.Fatalf("retry while loading must not start a second request")
	}
}

func TestFeedbackDelayUsesTick(t *testing.T) {
	p := &fakePresenter{}
	m := New(&fakeSource{answers: []bool{true}}, &countingRecorder{}, p, Config{Questions: 2, FeedbackDelay: 10 * time.Millisecond})
	drain(t, m, m.Start())
	start := time.Now()
	drain(t, m, m.Answer(true))
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("feedback advanced before the delay elapsed")
	}
	if m.Index() != 1 {
		t.Fatalf("expected advance after delay, index=%d", m.Index())
	}
}

func TestStateString(t *testing.T) {
	if StateRoundComplete.String() != "round-complete" || State(42).String() != "state(42)" {
		t.Fatalf("unexpected state names")
	}
}

func TestResultsBeforeCompletionDoesNotRecord(t *testing.T) {
	src := &fakeSource{answers: []bool{true}}
	rec := &countingRecorder{}
	m, p := newTestMachine(src, rec, 3)
	drain(t, m, m.Start())

	if _, ok := m.ResultsMessage(); ok {
		t.Fatalf("expected no results at the first question")
	}
	drain(t, m, m.Answer(true))
	if _, ok := m.ResultsMessage(); ok {
		t.Fatalf("expected no results mid-round")
	}
	if rec.calls != 0 {
		t.Fatalf("expected no record before completion, got %d", rec.calls)
	}

	drain(t, m, m.Answer(true))
	drain(t, m, m.Answer(true))
	if rec.calls != 1 || len(p.summaries) != 1 {
		t.Fatalf("expected one record and one summary, got %d and %d", rec.calls, len(p.summaries))
	}
	if p.summaries[0].Correct != 3 || p.summaries[0].GamesCount != 1 {
		t.Fatalf("expected 3/3 in the only recorded game, got %+v", p.summaries[0])
	}
}

func TestRoundCommitRunsAsCommand(t *testing.T) {
	src := &fakeSource{answers: []bool{true}}
	rec := &countingRecorder{}
	m, p := newTestMachine(src, rec, 1)
	drain(t, m, m.Start())

	cmd := m.Update(m.Answer(true)())
	if cmd == nil {
		t.Fatalf("expected a commit command after the last answer")
	}
	if m.State() != StateRoundComplete || rec.calls != 0 || len(p.summaries) != 0 {
		t.Fatalf("commit must not run on the update goroutine: state=%s calls=%d", m.State(), rec.calls)
	}
	if !p.loading {
		t.Fatalf("expected loading while the round is committed")
	}
	if _, ok := m.ResultsMessage(); ok {
		t.Fatalf("expected no results while the commit is in flight")
	}

	msg := cmd()
	if rec.calls != 1 {
		t.Fatalf("expected the command to record once, got %d", rec.calls)
	}
	if next := m.Update(msg); next != nil {
		t.Fatalf("expected no follow-up command")
	}
	if p.loading || len(p.summaries) != 1 {
		t.Fatalf("expected summary shown with loading off")
	}
	if got, ok := m.ResultsMessage(); !ok || got.Message != p.summaries[0].Message || rec.calls != 1 {
		t.Fatalf("expected cached summary without another record")
	}
}

func TestStaleRoundCommitIsIgnored(t *testing.T) {
	src := &fakeSource{answers: []bool{true}}
	rec := &countingRecorder{}
	m, p := newTestMachine(src, rec, 1)
	drain(t, m, m.Start())

	cmd := m.Update(m.Answer(true)())
	msg := cmd()
	drain(t, m, m.Reset())
	if m.State() != StateAwaitingAnswer {
		t.Fatalf("expected a fresh question, got %s", m.State())
	}
	m.Update(msg)
	if len(p.summaries) != 0 || m.State() != StateAwaitingAnswer {
		t.Fatalf("stale commit result changed the new round")
	}
}
