// Package chart renders static PNG line charts of derived series, the
// server-side counterpart to the dashboard's interactive charts.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"covidash/internal/models"
)

// Series is one polyline: a labelled sequence of dated points. Nil values are
// gaps in the line, matching the table's missing-value semantics.
type Series struct {
	Label  string
	Dates  []time.Time
	Values []*float64
}

type Options struct {
	Title  string
	Width  int
	Height int

	// Shading draws alternating bands for wave segments behind the lines.
	Shading []models.WaveSegment
}

const (
	defaultWidth  = 900
	defaultHeight = 420

	marginLeft   = 70
	marginRight  = 20
	marginTop    = 36
	marginBottom = 40
)

var (
	background = color.RGBA{255, 255, 255, 255}
	axisColor  = color.RGBA{90, 90, 90, 255}
	gridColor  = color.RGBA{225, 225, 225, 255}
	shadeColor = color.RGBA{235, 235, 235, 255}
	textColor  = color.RGBA{40, 40, 40, 255}

	palette = []color.RGBA{
		{31, 119, 180, 255},
		{255, 127, 14, 255},
		{44, 160, 44, 255},
		{214, 39, 40, 255},
		{148, 103, 189, 255},
	}
)

// RenderLines draws the series into a PNG. It is a pure function of its
// inputs. At least one series with one plottable point is required.
func RenderLines(series []Series, opts Options) ([]byte, error) {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}

	minDate, maxDate, minVal, maxVal, any := bounds(series)
	if !any {
		return nil, errors.New("no plottable points")
	}
	if minVal == maxVal {
		// Flat series still needs a vertical extent to draw into.
		minVal -= 1
		maxVal += 1
	}
	if minDate.Equal(maxDate) {
		maxDate = maxDate.AddDate(0, 0, 1)
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	plot := image.Rect(marginLeft, marginTop, opts.Width-marginRight, opts.Height-marginBottom)

	xAt := func(t time.Time) int {
		frac := float64(t.Sub(minDate)) / float64(maxDate.Sub(minDate))
		return plot.Min.X + int(frac*float64(plot.Dx()))
	}
	yAt := func(v float64) int {
		frac := (v - minVal) / (maxVal - minVal)
		return plot.Max.Y - int(frac*float64(plot.Dy()))
	}

	for i, seg := range opts.Shading {
		if i%2 == 0 {
			continue
		}
		x0, x1 := clampX(xAt(seg.Start), plot), clampX(xAt(seg.End), plot)
		if x1 > x0 {
			draw.Draw(img, image.Rect(x0, plot.Min.Y, x1, plot.Max.Y), &image.Uniform{shadeColor}, image.Point{}, draw.Src)
		}
	}

	// Horizontal gridlines at quartiles of the value range.
	for i := 0; i <= 4; i++ {
		v := minVal + (maxVal-minVal)*float64(i)/4
		y := yAt(v)
		hline(img, plot.Min.X, plot.Max.X, y, gridColor)
		label(img, 4, y+4, formatValue(v))
	}

	hline(img, plot.Min.X, plot.Max.X, plot.Max.Y, axisColor)
	vline(img, plot.Min.X, plot.Min.Y, plot.Max.Y, axisColor)
	label(img, plot.Min.X, opts.Height-12, minDate.Format("2006-01-02"))
	label(img, plot.Max.X-70, opts.Height-12, maxDate.Format("2006-01-02"))
	if opts.Title != "" {
		label(img, marginLeft, 20, opts.Title)
	}

	for si, s := range series {
		col := palette[si%len(palette)]
		var havePrev bool
		var px, py int
		for i, v := range s.Values {
			if v == nil {
				havePrev = false
				continue
			}
			x, y := xAt(s.Dates[i]), yAt(*v)
			if havePrev {
				line(img, px, py, x, y, col)
			}
			havePrev = true
			px, py = x, y
		}
		// Legend entry, stacked top-right.
		lx := plot.Max.X - 160
		ly := plot.Min.Y + 14 + si*14
		hline(img, lx, lx+18, ly-4, col)
		label(img, lx+24, ly, s.Label)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func bounds(series []Series) (minDate, maxDate time.Time, minVal, maxVal float64, any bool) {
	for _, s := range series {
		for i, v := range s.Values {
			if v == nil {
				continue
			}
			d := s.Dates[i]
			if !any {
				minDate, maxDate = d, d
				minVal, maxVal = *v, *v
				any = true
				continue
			}
			if d.Before(minDate) {
				minDate = d
			}
			if d.After(maxDate) {
				maxDate = d
			}
			minVal = math.Min(minVal, *v)
			maxVal = math.Max(maxVal, *v)
		}
	}
	return
}

func clampX(x int, plot image.Rectangle) int {
	if x < plot.Min.X {
		return plot.Min.X
	}
	if x > plot.Max.X {
		return plot.Max.X
	}
	return x
}

func hline(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y, c)
	}
}

func vline(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x, y, c)
	}
}

// line draws with a float step walk; charts at this resolution do not need
// proper anti-aliasing.
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx, dy := x1-x0, y1-y0
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		img.SetRGBA(x0, y0, c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		img.SetRGBA(x0+int(t*float64(dx)), y0+int(t*float64(dy)), c)
	}
}

func label(img *image.RGBA, x, y int, text string) {
	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{textColor},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func formatValue(v float64) string {
	switch {
	case math.Abs(v) >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case math.Abs(v) >= 1e3:
		return fmt.Sprintf("%.1fk", v/1e3)
	default:
		return fmt.Sprintf("%.1f", v)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
