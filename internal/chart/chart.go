// Package chart renders point sequences as SVG line charts. Live windows and
// finished reports share this one renderer: both reach it as an
// iter.Seq[window.Point].
package chart

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/MrWong99/podium/internal/window"
)

// ErrNoData is returned when the sequence yields no points.
var ErrNoData = errors.New("chart: no data points")

const (
	defaultWidth  = 640
	defaultHeight = 320
)

// Options controls one chart.
type Options struct {
	Title string

	// YName labels the value axis, e.g. "wpm" or "%".
	YName string

	// YMin and YMax pin the value axis. When both are zero the axis is fitted
	// to the data.
	YMin, YMax float64

	// TimeUnit is the unit of point timestamps: time.Millisecond for live
	// windows, time.Second for report records. Defaults to time.Millisecond.
	TimeUnit time.Duration

	Width, Height int

	// Color is the line color as a hex string. Defaults to go-chart's blue.
	Color string
}

// Render writes an SVG line chart of pts to w. The X axis shows seconds since
// the first point.
func Render(w io.Writer, pts iter.Seq[window.Point], opts Options) error {
	xs, ys := axisValues(pts, opts.TimeUnit)
	if len(xs) == 0 {
		return ErrNoData
	}
	// go-chart needs at least two X values.
	if len(xs) == 1 {
		xs = append(xs, xs[0]+1)
		ys = append(ys, ys[0])
	}

	yMin, yMax := opts.YMin, opts.YMax
	if yMin == 0 && yMax == 0 {
		yMin, yMax = fitRange(ys)
	}

	style := gochart.Style{StrokeWidth: 2, StrokeColor: gochart.ColorBlue, DotWidth: 3}
	if opts.Color != "" {
		style.StrokeColor = drawing.ColorFromHex(opts.Color)
	}
	style.DotColor = style.StrokeColor

	ch := gochart.Chart{
		Title:      opts.Title,
		Width:      orDefault(opts.Width, defaultWidth),
		Height:     orDefault(opts.Height, defaultHeight),
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      gochart.XAxis{Name: "seconds", Range: &gochart.ContinuousRange{Min: xs[0], Max: xs[len(xs)-1]}},
		YAxis:      gochart.YAxis{Name: opts.YName, Range: &gochart.ContinuousRange{Min: yMin, Max: yMax}},
		Series: []gochart.Series{
			gochart.ContinuousSeries{Name: opts.Title, XValues: xs, YValues: ys, Style: style},
		},
	}
	if err := ch.Render(gochart.SVG, w); err != nil {
		return fmt.Errorf("chart: render %q: %w", opts.Title, err)
	}
	return nil
}

// axisValues converts points to seconds since the first point and raw values.
// X values are forced to be strictly increasing.
func axisValues(pts iter.Seq[window.Point], unit time.Duration) (xs, ys []float64) {
	if unit <= 0 {
		unit = time.Millisecond
	}
	step := float64(unit) / float64(time.Second)

	var first int64
	for p := range pts {
		if len(xs) == 0 {
			first = p.Timestamp
		}
		x := float64(p.Timestamp-first) * float64(unit) / float64(time.Second)
		if n := len(xs); n > 0 && x <= xs[n-1] {
			x = xs[n-1] + step
		}
		xs = append(xs, x)
		ys = append(ys, p.Value)
	}
	return xs, ys
}

// fitRange returns a value range covering ys with 10% headroom on each side.
func fitRange(ys []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, y := range ys {
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	if hi <= lo {
		return lo - 1, hi + 1
	}
	pad := (hi - lo) * 0.1
	return lo - pad, hi + pad
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
