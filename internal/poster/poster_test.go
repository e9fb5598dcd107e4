package poster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestRenderEmptyShowsPlaceholder(t *testing.T) {
	out := Render(nil, 20, 10)
	if !strings.Contains(out, "no poster") {
		t.Fatalf("expected placeholder, got %q", out)
	}
}

func TestRenderGarbageShowsPlaceholder(t *testing.T) {
	out := Render([]byte("not an image"), 20, 10)
	if !strings.Contains(out, "no poster") {
		t.Fatalf("expected placeholder, got %q", out)
	}
}

func TestRenderFitsBounds(t *testing.T) {
	data := encodePNG(t, 20, 30)
	out := Render(data, 10, 5)
	lines := strings.Split(out, "\n")
	if len(lines) > 5 {
		t.Fatalf("expected at most 5 rows, got %d", len(lines))
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w > 10 {
			t.Fatalf("row %d too wide: %d", i, w)
		}
		if !strings.Contains(line, halfBlock) {
			t.Fatalf("row %d has no half blocks", i)
		}
	}
}

func TestFitKeepsAspect(t *testing.T) {
	cols, rows := fit(image.Rect(0, 0, 100, 150), 40, 100)
	if cols != 40 || rows != 30 {
		t.Fatalf("expected 40x30, got %dx%d", cols, rows)
	}
	cols, rows = fit(image.Rect(0, 0, 100, 150), 40, 10)
	if rows != 10 || cols != 13 {
		t.Fatalf("expected 13x10 when height bound, got %dx%d", cols, rows)
	}
}

func TestRenderZeroSize(t *testing.T) {
	if out := Render(encodePNG(t, 4, 4), 0, 5); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
