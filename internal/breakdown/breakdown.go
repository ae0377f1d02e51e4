// Package breakdown turns a live snapshot or a finished analysis report into
// the seven coaching categories shown on the summary view: clarity, pacing,
// tone, body language, vocabulary, confidence and energy.
//
// Each category is one row of a rule table. A rule knows how to score a
// snapshot and a report, and which suggestion to give for a score below,
// inside or above its comfortable band.
package breakdown

import (
	"fmt"
	"math"
	"strings"

	"github.com/MrWong99/podium/internal/analysis"
	"github.com/MrWong99/podium/pkg/speech"
)

// Category names one breakdown tab.
type Category string

const (
	Clarity      Category = "clarity"
	Pacing       Category = "pacing"
	Tone         Category = "tone"
	BodyLanguage Category = "body language"
	Vocabulary   Category = "vocabulary"
	Confidence   Category = "confidence"
	Energy       Category = "energy"
)

// Categories lists every category in display order.
var Categories = []Category{Clarity, Pacing, Tone, BodyLanguage, Vocabulary, Confidence, Energy}

// Item is one scored category.
type Item struct {
	Category   Category `json:"category"`
	Title      string   `json:"title"`
	Score      float64  `json:"score"`
	Unit       string   `json:"unit"`
	Detail     string   `json:"detail,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`

	// Available is false when the source carries no data for the category.
	// Score and Suggestion are empty then.
	Available bool `json:"available"`
}

// toneFullVariation is the pitch coefficient of variation scored as 100%.
const toneFullVariation = 0.25

type score struct {
	value  float64
	detail string
	ok     bool
}

type rule struct {
	category Category
	title    string
	unit     string

	// low and high bound the comfortable band. A zero high means no upper
	// bound.
	low, high float64
	below     string
	within    string
	above     string

	live   func(s speech.Snapshot) score
	report func(r *analysis.Report, fillers []speech.FillerWord) score
}

var rules = []rule{
	{
		category: Clarity,
		title:    "Clarity and Filler Words",
		unit:     "%",
		low:      80,
		below:    "Take a breath instead of reaching for a filler word when you need a moment to think.",
		within:   "Your articulation is clear. Keep pausing briefly instead of using filler words.",
		live: func(s speech.Snapshot) score {
			return score{value: s.Clarity, detail: fillerDetail(s.FillerWords), ok: true}
		},
		report: func(r *analysis.Report, fillers []speech.FillerWord) score {
			return score{value: percent(r.OverallClarity), detail: fillerDetail(fillers), ok: len(r.Segments) > 0 || r.OverallClarity > 0}
		},
	},
	{
		category: Pacing,
		title:    "Speaking Pace",
		unit:     "wpm",
		low:      110,
		high:     150,
		below:    "Your pace is slow. Tighten long pauses and keep sentences moving.",
		within:   "Your average pace is good. Try to keep a consistent speed throughout.",
		above:    "You are speaking quickly. Slow down on key points so they land.",
		live: func(s speech.Snapshot) score {
			return score{value: s.Speed, ok: true}
		},
		report: func(r *analysis.Report, _ []speech.FillerWord) score {
			return score{value: r.AveragePaceWPM, ok: r.AveragePaceWPM > 0}
		},
	},
	{
		category: Tone,
		title:    "Tone and Pitch Variation",
		unit:     "%",
		low:      55,
		below:    "You sound monotone at times. Vary your pitch more during key points.",
		within:   "Your tone variation is good. Keep using pitch to mark emphasis.",
		live: func(s speech.Snapshot) score {
			return score{value: s.PitchVariation, ok: true}
		},
		report: func(r *analysis.Report, _ []speech.FillerWord) score {
			mean, sd, n := stats(r.TimeSeries.Pitch)
			if n < 2 || mean <= 0 {
				return score{}
			}
			v := min(100, 100*(sd/mean)/toneFullVariation)
			return score{value: v, detail: fmt.Sprintf("Average pitch %.0f Hz", mean), ok: true}
		},
	},
	{
		category: BodyLanguage,
		title:    "Posture and Body Language",
		unit:     "%",
		low:      80,
		below:    "Open up your posture and face the camera more often.",
		within:   "Your body language is positive. Use hand gestures to emphasize key points.",
		live: func(s speech.Snapshot) score {
			return score{value: s.Posture, ok: true}
		},
		// Reports carry no video analysis.
		report: func(*analysis.Report, []speech.FillerWord) score { return score{} },
	},
	{
		category: Vocabulary,
		title:    "Word Choice and Vocabulary",
		unit:     "%",
		low:      55,
		high:     75,
		below:    "Your wording is repetitive. Reach for more precise words.",
		within:   "Your vocabulary is well balanced for a general audience.",
		above:    "Consider simplifying some terms so everyone can follow.",
		live: func(s speech.Snapshot) score {
			return score{value: s.SentenceComplexity, ok: true}
		},
		report: func(r *analysis.Report, _ []speech.FillerWord) score {
			return score{value: percent(r.VocabularyScore), ok: r.VocabularyScore > 0}
		},
	},
	{
		category: Confidence,
		title:    "Confidence",
		unit:     "%",
		low:      70,
		below:    "Project your voice and finish sentences firmly.",
		within:   "Your confidence levels are high. Maintain this assurance throughout.",
		live: func(s speech.Snapshot) score {
			return score{value: s.Volume, ok: true}
		},
		report: func(r *analysis.Report, _ []speech.FillerWord) score {
			mean, _, n := stats(r.TimeSeries.Confidence)
			if n == 0 {
				return score{}
			}
			return score{value: percent(mean), ok: true}
		},
	},
	{
		category: Energy,
		title:    "Energy and Enthusiasm",
		unit:     "%",
		low:      65,
		below:    "Add vocal variety and energy to keep the audience engaged.",
		within:   "Your energy is good. Keep the audience engaged with vocal variety.",
		live: func(s speech.Snapshot) score {
			return score{value: (s.Volume + s.PitchVariation) / 2, ok: true}
		},
		// Mean energy as a share of peak energy; enthusiasm_score has no
		// fixed scale and is only shown as detail.
		report: func(r *analysis.Report, _ []speech.FillerWord) score {
			mean, _, n := stats(r.TimeSeries.Energy)
			peak := 0.0
			for _, v := range r.TimeSeries.Energy {
				peak = max(peak, v)
			}
			if n == 0 || peak <= 0 {
				return score{}
			}
			s := score{value: clamp(100*mean/peak, 0, 100), ok: true}
			if r.EnthusiasmScore > 0 {
				s.detail = fmt.Sprintf("Backend enthusiasm score %.1f", r.EnthusiasmScore)
			}
			return s
		},
	},
}

// FromSnapshot scores a live snapshot. Every category is available.
func FromSnapshot(s speech.Snapshot) []Item {
	out := make([]Item, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.item(r.live(s)))
	}
	return out
}

// FromReport scores a finished report. fillers is the transcript tally shown
// under clarity.
func FromReport(rep *analysis.Report, fillers []speech.FillerWord) []Item {
	out := make([]Item, 0, len(rules))
	for _, r := range rules {
		if rep == nil {
			out = append(out, r.item(score{}))
			continue
		}
		out = append(out, r.item(r.report(rep, fillers)))
	}
	return out
}

func (r rule) item(s score) Item {
	it := Item{Category: r.category, Title: r.title, Unit: r.unit}
	if !s.ok {
		return it
	}
	it.Available = true
	it.Score = math.Round(s.value*10) / 10
	it.Detail = s.detail
	it.Suggestion = r.suggest(it.Score)
	return it
}

func (r rule) suggest(v float64) string {
	switch {
	case v < r.low:
		return r.below
	case r.high > 0 && v > r.high:
		return r.above
	default:
		return r.within
	}
}

// percent scales ratios in [0, 1] to percentages. Values above 1 are taken
// as percentages already.
func percent(v float64) float64 {
	if v <= 1 {
		v *= 100
	}
	return clamp(v, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func stats(vals []float64) (mean, sd float64, n int) {
	n = len(vals)
	if n == 0 {
		return 0, 0, 0
	}
	for _, v := range vals {
		mean += v
	}
	mean /= float64(n)
	for _, v := range vals {
		sd += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sd / float64(n)), n
}

func fillerDetail(fillers []speech.FillerWord) string {
	if len(fillers) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fillers))
	total := 0
	for _, fw := range fillers {
		parts = append(parts, fmt.Sprintf("%q ×%d", fw.Word, fw.Count))
		total += fw.Count
	}
	return fmt.Sprintf("%d filler words: %s", total, strings.Join(parts, ", "))
}
