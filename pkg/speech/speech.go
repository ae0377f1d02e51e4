// Package speech defines the metric vocabulary shared by the live panel, the
// analysis report views and the presentation layer.
//
// A [Snapshot] is one reading of every live metric. Each bounded metric is a
// [Field] with a [FieldSpec] describing its closed range, its per-tick random
// walk step and its initial value. Filler words are tracked separately as an
// ordered list of non-negative counts.
package speech

import (
	"errors"
	"fmt"
)

// ErrInvalidRange is returned when a field's range, step or initial value is
// malformed. Ranges are checked once at configuration load.
var ErrInvalidRange = errors.New("speech: invalid field range")

// Field names one bounded live metric. The string value is the JSON key used
// on the wire and the key used in configuration files.
type Field string

const (
	Speed              Field = "speed"
	Clarity            Field = "clarity"
	PitchVariation     Field = "pitchVariation"
	Volume             Field = "volume"
	SentenceComplexity Field = "sentenceComplexity"
	Posture            Field = "posture"
)

// Fields lists every bounded field in display order.
var Fields = []Field{Speed, Clarity, PitchVariation, Volume, SentenceComplexity, Posture}

// IsValid reports whether f is a known field.
func (f Field) IsValid() bool {
	switch f {
	case Speed, Clarity, PitchVariation, Volume, SentenceComplexity, Posture:
		return true
	}
	return false
}

// Label returns the human-readable name of f.
func (f Field) Label() string {
	switch f {
	case Speed:
		return "Speed"
	case Clarity:
		return "Clarity"
	case PitchVariation:
		return "Pitch Variation"
	case Volume:
		return "Volume"
	case SentenceComplexity:
		return "Sentence Complexity"
	case Posture:
		return "Posture"
	}
	return string(f)
}

// Unit returns the display unit for f.
func (f Field) Unit() string {
	if f == Speed {
		return "wpm"
	}
	return "%"
}

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Clamp returns v limited to r.
func (r Range) Clamp(v float64) float64 {
	return min(max(v, r.Min), r.Max)
}

// Contains reports whether v lies within r.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// FieldSpec describes how a single field behaves on the live panel.
type FieldSpec struct {
	Range   `yaml:",inline"`
	Step    float64 `yaml:"step" json:"step"`
	Initial float64 `yaml:"initial" json:"initial"`
}

// Validate checks that the spec describes a usable random walk.
func (s FieldSpec) Validate() error {
	switch {
	case s.Min > s.Max:
		return fmt.Errorf("%w: min %.2f is greater than max %.2f", ErrInvalidRange, s.Min, s.Max)
	case s.Step < 0:
		return fmt.Errorf("%w: step %.2f is negative", ErrInvalidRange, s.Step)
	case !s.Contains(s.Initial):
		return fmt.Errorf("%w: initial %.2f is outside [%.2f, %.2f]", ErrInvalidRange, s.Initial, s.Min, s.Max)
	}
	return nil
}

// Specs maps every bounded field to its spec.
type Specs map[Field]FieldSpec

// DefaultSpecs returns the stock ranges, steps and initial values.
func DefaultSpecs() Specs {
	return Specs{
		Speed:              {Range: Range{Min: 80, Max: 160}, Step: 10, Initial: 120},
		Clarity:            {Range: Range{Min: 60, Max: 100}, Step: 5, Initial: 75},
		PitchVariation:     {Range: Range{Min: 40, Max: 80}, Step: 5, Initial: 60},
		Volume:             {Range: Range{Min: 50, Max: 90}, Step: 5, Initial: 70},
		SentenceComplexity: {Range: Range{Min: 50, Max: 80}, Step: 5, Initial: 65},
		Posture:            {Range: Range{Min: 70, Max: 100}, Step: 5, Initial: 85},
	}
}

// FieldOverride changes part of a field's spec. Nil members keep the base
// value, so a config can move one bound without restating the rest.
type FieldOverride struct {
	Min     *float64 `yaml:"min" json:"min,omitempty"`
	Max     *float64 `yaml:"max" json:"max,omitempty"`
	Step    *float64 `yaml:"step" json:"step,omitempty"`
	Initial *float64 `yaml:"initial" json:"initial,omitempty"`
}

// Overrides maps fields to partial spec changes.
type Overrides map[Field]FieldOverride

// Apply returns a copy of s with the set members of every override
// replaced. s is not modified.
func (s Specs) Apply(o Overrides) Specs {
	out := make(Specs, len(s))
	for f, spec := range s {
		out[f] = spec
	}
	for f, ov := range o {
		spec := out[f]
		setIf(&spec.Min, ov.Min)
		setIf(&spec.Max, ov.Max)
		setIf(&spec.Step, ov.Step)
		setIf(&spec.Initial, ov.Initial)
		out[f] = spec
	}
	return out
}

func setIf(dst, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks every spec and that every field is present.
func (s Specs) Validate() error {
	var errs []error
	for _, f := range Fields {
		spec, ok := s[f]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: field %q has no spec", ErrInvalidRange, f))
			continue
		}
		if err := spec.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("field %q: %w", f, err))
		}
	}
	for f := range s {
		if !f.IsValid() {
			errs = append(errs, fmt.Errorf("%w: unknown field %q", ErrInvalidRange, f))
		}
	}
	return errors.Join(errs...)
}

// Initial builds the first snapshot of a panel from the specs and the given
// filler words.
func (s Specs) Initial(fillers []FillerWord) Snapshot {
	snap := Snapshot{FillerWords: cloneFillers(fillers)}
	for _, f := range Fields {
		snap.Set(f, s[f].Initial)
	}
	return snap
}

// FillerWord is a tracked filler word and how often it was heard.
type FillerWord struct {
	Word  string `yaml:"word" json:"word"`
	Count int    `yaml:"count" json:"count"`
}

// DefaultFillerWords returns the stock filler words with their starting counts.
func DefaultFillerWords() []FillerWord {
	return []FillerWord{
		{Word: "um", Count: 3},
		{Word: "like", Count: 2},
		{Word: "you know", Count: 1},
	}
}

// Snapshot is one reading of every live metric.
type Snapshot struct {
	Speed              float64      `json:"speed"`
	Clarity            float64      `json:"clarity"`
	PitchVariation     float64      `json:"pitchVariation"`
	Volume             float64      `json:"volume"`
	SentenceComplexity float64      `json:"sentenceComplexity"`
	Posture            float64      `json:"posture"`
	FillerWords        []FillerWord `json:"fillerWords"`
}

// Get returns the value of field f, or 0 for an unknown field.
func (s Snapshot) Get(f Field) float64 {
	switch f {
	case Speed:
		return s.Speed
	case Clarity:
		return s.Clarity
	case PitchVariation:
		return s.PitchVariation
	case Volume:
		return s.Volume
	case SentenceComplexity:
		return s.SentenceComplexity
	case Posture:
		return s.Posture
	}
	return 0
}

// Set assigns v to field f. Unknown fields are ignored.
func (s *Snapshot) Set(f Field, v float64) {
	switch f {
	case Speed:
		s.Speed = v
	case Clarity:
		s.Clarity = v
	case PitchVariation:
		s.PitchVariation = v
	case Volume:
		s.Volume = v
	case SentenceComplexity:
		s.SentenceComplexity = v
	case Posture:
		s.Posture = v
	}
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	s.FillerWords = cloneFillers(s.FillerWords)
	return s
}

// FillerTotal returns the sum of all filler word counts.
func (s Snapshot) FillerTotal() int {
	var n int
	for _, fw := range s.FillerWords {
		n += fw.Count
	}
	return n
}

func cloneFillers(in []FillerWord) []FillerWord {
	if in == nil {
		return nil
	}
	out := make([]FillerWord, len(in))
	copy(out, in)
	return out
}
