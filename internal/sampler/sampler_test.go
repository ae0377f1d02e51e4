package sampler_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/MrWong99/podium/internal/sampler"
	"github.com/MrWong99/podium/pkg/speech"
)

// scripted replays fixed values; it wraps around when exhausted.
type scripted struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (s *scripted) Float64() float64 {
	v := s.floats[s.fi%len(s.floats)]
	s.fi++
	return v
}

func (s *scripted) IntN(n int) int {
	v := s.ints[s.ii%len(s.ints)]
	s.ii++
	return v % n
}

func initial() speech.Snapshot {
	return speech.DefaultSpecs().Initial(speech.DefaultFillerWords())
}

func TestSample_StaysWithinRange(t *testing.T) {
	t.Parallel()

	specs := speech.DefaultSpecs()
	s := sampler.New(specs, sampler.WithSeed(7))
	snap := initial()

	for i := range 10_000 {
		next := s.Sample(snap)
		for _, f := range speech.Fields {
			spec := specs[f]
			v := next.Get(f)
			if !spec.Contains(v) {
				t.Fatalf("tick %d: %s = %v outside [%v, %v]", i, f, v, spec.Min, spec.Max)
			}
			if d := math.Abs(v - snap.Get(f)); d > spec.Step/2 {
				t.Fatalf("tick %d: %s moved by %v, more than half step %v", i, f, d, spec.Step)
			}
		}
		for j, fw := range next.FillerWords {
			if fw.Count < 0 {
				t.Fatalf("tick %d: filler %q count %d is negative", i, fw.Word, fw.Count)
			}
			if fw.Word != snap.FillerWords[j].Word {
				t.Fatalf("tick %d: filler word %d changed from %q to %q", i, j, snap.FillerWords[j].Word, fw.Word)
			}
			if d := fw.Count - snap.FillerWords[j].Count; d < -1 || d > 1 {
				t.Fatalf("tick %d: filler %q moved by %d", i, fw.Word, d)
			}
		}
		snap = next
	}
}

func TestSample_ClampsAtBounds(t *testing.T) {
	t.Parallel()

	specs := speech.DefaultSpecs()
	snap := initial()
	for _, f := range speech.Fields {
		snap.Set(f, specs[f].Max)
	}

	// U close to 1 pushes every field upwards.
	s := sampler.New(specs, sampler.WithSource(&scripted{floats: []float64{0.9999}, ints: []int{1}}))
	next := s.Sample(snap)
	for _, f := range speech.Fields {
		if got := next.Get(f); got != specs[f].Max {
			t.Errorf("%s = %v, want clamped to %v", f, got, specs[f].Max)
		}
	}

	for _, f := range speech.Fields {
		snap.Set(f, specs[f].Min)
	}
	s = sampler.New(specs, sampler.WithSource(&scripted{floats: []float64{0}, ints: []int{1}}))
	next = s.Sample(snap)
	for _, f := range speech.Fields {
		if got := next.Get(f); got != specs[f].Min {
			t.Errorf("%s = %v, want clamped to %v", f, got, specs[f].Min)
		}
	}
}

func TestSample_DeltaFormula(t *testing.T) {
	t.Parallel()

	// U = 0.75 gives +step/4: +2.5 for speed, +1.25 for the others.
	s := sampler.New(speech.DefaultSpecs(), sampler.WithSource(&scripted{floats: []float64{0.75}, ints: []int{2}}))
	next := s.Sample(initial())

	want := map[speech.Field]float64{
		speech.Speed:              122.5,
		speech.Clarity:            76.25,
		speech.PitchVariation:     61.25,
		speech.Volume:             71.25,
		speech.SentenceComplexity: 66.25,
		speech.Posture:            86.25,
	}
	for f, v := range want {
		if got := next.Get(f); got != v {
			t.Errorf("%s = %v, want %v", f, got, v)
		}
	}
	// IntN(3) = 2 means +1 for every filler word.
	for i, fw := range next.FillerWords {
		if want := speech.DefaultFillerWords()[i].Count + 1; fw.Count != want {
			t.Errorf("filler %q = %d, want %d", fw.Word, fw.Count, want)
		}
	}
}

func TestSample_FillerCountFloorsAtZero(t *testing.T) {
	t.Parallel()

	snap := initial()
	for i := range snap.FillerWords {
		snap.FillerWords[i].Count = 0
	}
	s := sampler.New(speech.DefaultSpecs(), sampler.WithSource(&scripted{floats: []float64{0.5}, ints: []int{0}}))
	next := s.Sample(snap)
	for _, fw := range next.FillerWords {
		if fw.Count != 0 {
			t.Errorf("filler %q = %d, want 0", fw.Word, fw.Count)
		}
	}
}

func TestSample_DoesNotMutatePrevious(t *testing.T) {
	t.Parallel()

	prev := initial()
	keep := prev.Clone()
	s := sampler.New(speech.DefaultSpecs(), sampler.WithSeed(1))
	_ = s.Sample(prev)

	if !reflect.DeepEqual(prev, keep) {
		t.Errorf("Sample mutated prev: got %+v, want %+v", prev, keep)
	}
}

func TestSample_DeterministicWithSeed(t *testing.T) {
	t.Parallel()

	a := sampler.New(speech.DefaultSpecs(), sampler.WithSeed(42))
	b := sampler.New(speech.DefaultSpecs(), sampler.WithSeed(42))
	sa, sb := initial(), initial()
	for range 50 {
		sa, sb = a.Sample(sa), b.Sample(sb)
	}
	if !reflect.DeepEqual(sa, sb) {
		t.Errorf("same seed produced different streams:\n%+v\n%+v", sa, sb)
	}
}
