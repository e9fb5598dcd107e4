// Package poster renders poster images as half-block terminal art.
package poster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // JPEG posters.
	_ "image/png"  // PNG posters.
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const halfBlock = "▀"

var placeholderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#6E6E6E")).
	Foreground(lipgloss.Color("#8C8C8C")).
	Align(lipgloss.Center, lipgloss.Center)

// Render draws data in at most width columns and maxRows rows. Each row
// covers two pixel rows. Empty or undecodable data yields a placeholder.
func Render(data []byte, width, maxRows int) string {
	if width < 1 || maxRows < 1 {
		return ""
	}
	if len(data) == 0 {
		return Placeholder(width, maxRows)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Placeholder(width, maxRows)
	}
	cols, rows := fit(img.Bounds(), width, maxRows)
	if cols == 0 || rows == 0 {
		return Placeholder(width, maxRows)
	}
	return renderImage(img, cols, rows)
}

// Placeholder is drawn when there is no poster to show.
func Placeholder(width, maxRows int) string {
	w := width - 2
	h := maxRows - 2
	if w < 1 || h < 1 {
		return "no poster"
	}
	return placeholderStyle.Width(w).Height(h).Render("no poster")
}

// fit scales bounds into the cell grid, keeping the aspect ratio.
func fit(bounds image.Rectangle, width, maxRows int) (int, int) {
	imgW := bounds.Dx()
	imgH := bounds.Dy()
	if imgW <= 0 || imgH <= 0 {
		return 0, 0
	}
	cols := width
	if cols > imgW {
		cols = imgW
	}
	pixelRows := cols * imgH / imgW
	if pixelRows > maxRows*2 {
		pixelRows = maxRows * 2
		cols = pixelRows * imgW / imgH
	}
	rows := (pixelRows + 1) / 2
	if cols < 1 || rows < 1 {
		return 0, 0
	}
	return cols, rows
}

func renderImage(img image.Image, cols, rows int) string {
	bounds := img.Bounds()
	pixelRows := rows * 2
	var b strings.Builder
	for row := 0; row < rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < cols; col++ {
			x := bounds.Min.X + col*bounds.Dx()/cols
			top := bounds.Min.Y + (row*2)*bounds.Dy()/pixelRows
			bottom := bounds.Min.Y + (row*2+1)*bounds.Dy()/pixelRows
			style := lipgloss.NewStyle().
				Foreground(hexColor(img.At(x, top))).
				Background(hexColor(img.At(x, bottom)))
			b.WriteString(style.Render(halfBlock))
		}
	}
	return b.String()
}

func hexColor(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r>>8, g>>8, b>>8))
}
