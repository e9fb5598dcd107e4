package statsui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/moviequiz/internal/model"
	"github.com/verte-zerg/moviequiz/internal/stats"
)

func newAggregator(t *testing.T, rounds ...[2]int) *stats.Aggregator {
	t.Helper()
	store := stats.NewMemoryStore()
	agg := stats.NewAggregator(store, store, nil)
	for _, r := range rounds {
		if _, err := agg.Record(context.Background(), r[0], r[1]); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	return agg
}

func TestOverviewShowsCards(t *testing.T) {
	m := NewModel(newAggregator(t, [2]int{6, 10}, [2]int{8, 10}), model.StatsConfig{CurveWindow: 1})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	view := m.View()
	for _, want := range []string{"Games", "2", "70.00%", "8/10", "Accuracy trend"} {
		if !strings.Contains(view, want) {
			t.Fatalf("overview missing %q:\n%s", want, view)
		}
	}
}

func TestEmptyStats(t *testing.T) {
	m := NewModel(newAggregator(t), model.StatsConfig{})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	if !strings.Contains(m.View(), "No games played yet.") {
		t.Fatalf("expected empty message:\n%s", m.View())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if !strings.Contains(m.View(), "No rounds found.") {
		t.Fatalf("expected empty rounds message:\n%s", m.View())
	}
}

func TestRoundsTab(t *testing.T) {
	m := NewModel(newAggregator(t, [2]int{3, 5}, [2]int{4, 5}), model.StatsConfig{CurveWindow: 1})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabRounds {
		t.Fatalf("expected rounds tab")
	}
	view := m.View()
	for _, want := range []string{"Finished", "Result", "3/5", "4/5", "80.00%"} {
		if !strings.Contains(view, want) {
			t.Fatalf("rounds view missing %q:\n%s", want, view)
		}
	}
}

func TestCurveWindowKeys(t *testing.T) {
	m := NewModel(newAggregator(t, [2]int{1, 2}), model.StatsConfig{CurveWindow: 1})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("=")})
	if m.cfg.CurveWindow != 5 {
		t.Fatalf("expected window 5, got %d", m.cfg.CurveWindow)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	if m.cfg.CurveWindow != 1 {
		t.Fatalf("expected window 1, got %d", m.cfg.CurveWindow)
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(newAggregator(t), model.StatsConfig{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
