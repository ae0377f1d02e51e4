package chart

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/podium/internal/window"
)

func TestRender_LiveWindow(t *testing.T) {
	t.Parallel()

	w := window.New[window.Point](10)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).UnixMilli()
	for i := range 5 {
		w.Push(window.Point{Timestamp: base + int64(i)*2000, Value: 120 + float64(i)*5})
	}

	var buf bytes.Buffer
	err := Render(&buf, w.All(), Options{Title: "Speed", YName: "wpm", YMin: 80, YMax: 160, Color: "1f77b4"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<svg") {
		t.Errorf("output is not SVG: %.80q", out)
	}
	if !strings.Contains(out, "Speed") {
		t.Error("SVG lacks the title")
	}
}

func TestRender_SinglePoint(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	pts := window.Points([]window.Point{{Timestamp: 3, Value: 0.5}})
	if err := Render(&buf, pts, Options{Title: "energy", TimeUnit: time.Second}); err != nil {
		t.Fatalf("Render single point: %v", err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Error("output is not SVG")
	}
}

func TestRender_NoData(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Render(&buf, window.Points(nil), Options{Title: "empty"})
	if !errors.Is(err, ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
	if buf.Len() != 0 {
		t.Error("bytes written for an empty chart")
	}
}

func TestAxisValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		pts    []window.Point
		unit   time.Duration
		wantXs []float64
	}{
		{
			name:   "milliseconds",
			pts:    []window.Point{{Timestamp: 10_000}, {Timestamp: 12_000}, {Timestamp: 14_500}},
			unit:   time.Millisecond,
			wantXs: []float64{0, 2, 4.5},
		},
		{
			name:   "seconds",
			pts:    []window.Point{{Timestamp: 1}, {Timestamp: 2}, {Timestamp: 4}},
			unit:   time.Second,
			wantXs: []float64{0, 1, 3},
		},
		{
			name:   "duplicate rounded timestamps",
			pts:    []window.Point{{Timestamp: 2}, {Timestamp: 2}, {Timestamp: 3}},
			unit:   time.Second,
			wantXs: []float64{0, 1, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			xs, ys := axisValues(window.Points(tt.pts), tt.unit)
			if !slices.Equal(xs, tt.wantXs) {
				t.Errorf("xs = %v, want %v", xs, tt.wantXs)
			}
			if len(ys) != len(tt.pts) {
				t.Errorf("len(ys) = %d, want %d", len(ys), len(tt.pts))
			}
		})
	}
}

func TestFitRange(t *testing.T) {
	t.Parallel()

	lo, hi := fitRange([]float64{10, 20})
	if lo != 9 || hi != 21 {
		t.Errorf("fitRange = [%v, %v], want [9, 21]", lo, hi)
	}
	lo, hi = fitRange([]float64{5, 5})
	if lo != 4 || hi != 6 {
		t.Errorf("flat fitRange = [%v, %v], want [4, 6]", lo, hi)
	}
}
