package stats

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/verte-zerg/moviequiz/internal/model"
)

const (
	terminalWidthBackup = 80
	dateLayout          = "2006-01-02 15:04"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	State  model.StatsState
	Rounds []model.RoundRecord
}

// BuildReport loads aggregate stats and the most recent rounds.
func BuildReport(ctx context.Context, agg *Aggregator, cfg model.StatsConfig) (Report, error) {
	st, err := agg.State(ctx)
	if err != nil {
		return Report{}, err
	}
	rounds, err := agg.Rounds(ctx, cfg.Last)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load rounds: %w", err)
	}
	return Report{State: st, Rounds: rounds}, nil
}

// HasBest reports whether a best game has been recorded.
func (r Report) HasBest() bool {
	return r.State.GamesCount > 0 && r.State.BestGame.Total > 0
}

// RenderReport prints a plain-text report.
func RenderReport(w io.Writer, r Report, window, width int) error {
	if r.State.GamesCount == 0 {
		_, err := fmt.Fprintln(w, "No games played yet.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Games played: %d\n", r.State.GamesCount); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Average accuracy: %.2f%%\n", r.State.TotalAccuracy); err != nil {
		return err
	}
	if r.HasBest() {
		best := r.State.BestGame
		if _, err := fmt.Fprintf(w, "Record: %d/%d (%s)\n", best.Correct, best.Total, best.Date.Local().Format(dateLayout)); err != nil {
			return err
		}
	}
	if len(r.Rounds) == 0 {
		return nil
	}

	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	trend := AccuracyTrend(r.Rounds, window, width)
	if _, err := fmt.Fprintf(w, "Accuracy trend (window %d)\n|%s|\n\n", window, trend); err != nil {
		return err
	}

	for _, line := range formatTable(RoundTableHeaders(), RoundTableRows(r.Rounds), []align{alignLeft, alignRight, alignRight}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// AccuracyTrend renders the smoothed accuracy sparkline, keeping the last width points.
func AccuracyTrend(rounds []model.RoundRecord, window, width int) string {
	values := MovingAverage(Accuracies(rounds), window)
	if width > 0 && len(values) > width {
		values = values[len(values)-width:]
	}
	return Sparkline(values)
}

// RoundTableHeaders returns the column titles of the round table.
func RoundTableHeaders() []string {
	return []string{"Finished", "Result", "Accuracy"}
}

// RoundTableRows formats rounds newest first.
func RoundTableRows(rounds []model.RoundRecord) [][]string {
	rows := make([][]string, 0, len(rounds))
	for i := len(rounds) - 1; i >= 0; i-- {
		r := rounds[i]
		rows = append(rows, []string{
			r.FinishedAt.Local().Format(dateLayout),
			fmt.Sprintf("%d/%d", r.Correct, r.Total),
			fmt.Sprintf("%.2f%%", r.Accuracy),
		})
	}
	return rows
}

// TerminalWidth returns the stdout width or a fallback when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
