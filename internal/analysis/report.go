package analysis

import (
	"fmt"
	"iter"

	"github.com/MrWong99/podium/internal/window"
)

// Segment is one transcribed stretch of the recording.
type Segment struct {
	Text          string  `json:"text"`
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
	Confidence    float64 `json:"confidence"`
	PitchAvg      float64 `json:"pitch_avg,omitempty"`
	PitchVariance float64 `json:"pitch_variance,omitempty"`
	Energy        float64 `json:"energy,omitempty"`
	SpeakingRate  float64 `json:"speaking_rate,omitempty"`
}

// TimeSeries holds the per-instant measurements as parallel arrays.
type TimeSeries struct {
	Timestamps   []float64 `json:"timestamps"`
	Pitch        []float64 `json:"pitch"`
	Energy       []float64 `json:"energy"`
	SpeakingRate []float64 `json:"speaking_rate"`
	Confidence   []float64 `json:"confidence"`
}

// Report is the analysis backend's verdict on one recording.
type Report struct {
	OverallClarity    float64    `json:"overall_clarity"`
	AveragePaceWPM    float64    `json:"average_pace_wpm"`
	VocabularyScore   float64    `json:"vocabulary_score"`
	EnthusiasmScore   float64    `json:"enthusiasm_score"`
	Summary           string     `json:"summary"`
	FullTranscription string     `json:"full_transcription"`
	TimeSeries        TimeSeries `json:"time_series_data"`
	Segments          []Segment  `json:"segments"`
}

// Validate checks the structural guarantees consumers rely on.
func (r *Report) Validate() error {
	if _, err := r.Records(); err != nil {
		return err
	}
	for i, seg := range r.Segments {
		if seg.Confidence < 0 || seg.Confidence > 1 {
			return fmt.Errorf("analysis: segment %d confidence %.3f outside [0, 1]", i, seg.Confidence)
		}
		if seg.EndTime < seg.StartTime {
			return fmt.Errorf("analysis: segment %d ends at %.2f before it starts at %.2f", i, seg.EndTime, seg.StartTime)
		}
	}
	return nil
}

// Record is one instant of the report's time series.
type Record struct {
	Timestamp    int64   `json:"timestamp"`
	Pitch        float64 `json:"pitch"`
	Energy       float64 `json:"energy"`
	SpeakingRate float64 `json:"speaking_rate"`
	Confidence   float64 `json:"confidence"`
}

// Records joins the parallel time series by index. Timestamps are rounded to
// whole seconds.
func (r *Report) Records() ([]Record, error) {
	ts := r.TimeSeries
	rows, err := window.Zip(ts.Timestamps, ts.Pitch, ts.Energy, ts.SpeakingRate, ts.Confidence)
	if err != nil {
		return nil, fmt.Errorf("analysis: time_series_data: %w", err)
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = Record{
			Timestamp:    row.Timestamp,
			Pitch:        row.Values[0],
			Energy:       row.Values[1],
			SpeakingRate: row.Values[2],
			Confidence:   row.Values[3],
		}
	}
	return out, nil
}

// Series names one report time series.
type Series string

const (
	SeriesPitch        Series = "pitch"
	SeriesEnergy       Series = "energy"
	SeriesSpeakingRate Series = "speaking_rate"
	SeriesConfidence   Series = "confidence"
)

// AllSeries lists the chartable report series.
var AllSeries = []Series{SeriesPitch, SeriesEnergy, SeriesSpeakingRate, SeriesConfidence}

// IsValid reports whether s is a known series.
func (s Series) IsValid() bool {
	switch s {
	case SeriesPitch, SeriesEnergy, SeriesSpeakingRate, SeriesConfidence:
		return true
	}
	return false
}

// value picks the series value out of a record.
func (s Series) value(r Record) float64 {
	switch s {
	case SeriesPitch:
		return r.Pitch
	case SeriesEnergy:
		return r.Energy
	case SeriesSpeakingRate:
		return r.SpeakingRate
	case SeriesConfidence:
		return r.Confidence
	}
	return 0
}

// Project yields one series of records as chart points.
func Project(records []Record, s Series) iter.Seq[window.Point] {
	return func(yield func(window.Point) bool) {
		for _, rec := range records {
			if !yield(window.Point{Timestamp: rec.Timestamp, Value: s.value(rec)}) {
				return
			}
		}
	}
}
