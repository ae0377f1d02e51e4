package analysis

import (
	"slices"
	"testing"

	"github.com/MrWong99/podium/pkg/speech"
)

func TestFillerTally_Count(t *testing.T) {
	t.Parallel()

	words := []string{"um", "like", "you know"}
	tests := []struct {
		name string
		text string
		want []int
	}{
		{name: "empty", text: "", want: []int{0, 0, 0}},
		{name: "exact", text: "Um, I like it. You know, um... yeah.", want: []int{2, 1, 1}},
		{name: "spelling variant", text: "umm I think umm", want: []int{2, 0, 0}},
		{name: "unrelated words", text: "I am sure she likes you", want: []int{0, 0, 0}},
		{name: "split phrase", text: "you never know", want: []int{0, 0, 0}},
		{name: "phrase across punctuation", text: "you, know", want: []int{0, 0, 1}},
	}

	tally := NewFillerTally(words)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tally.Count(tt.text)
			if len(got) != len(words) {
				t.Fatalf("len = %d, want %d", len(got), len(words))
			}
			for i, fw := range got {
				if fw.Word != words[i] {
					t.Errorf("entry %d word = %q, want %q", i, fw.Word, words[i])
				}
				if fw.Count != tt.want[i] {
					t.Errorf("%q count = %d, want %d", fw.Word, fw.Count, tt.want[i])
				}
			}
		})
	}
}

func TestFillerTally_SkipsBlankWords(t *testing.T) {
	t.Parallel()

	got := NewFillerTally([]string{"", "  ", "Uh"}).Count("uh uh")
	want := []speech.FillerWord{{Word: "uh", Count: 2}}
	if !slices.Equal(got, want) {
		t.Errorf("Count() = %v, want %v", got, want)
	}
}

func TestReport_Fillers(t *testing.T) {
	t.Parallel()

	rep := Report{
		FullTranscription: "ignored when segments exist",
		Segments: []Segment{
			{Text: "Um so", EndTime: 1, Confidence: 1},
			{Text: "like, um", StartTime: 1, EndTime: 2, Confidence: 1},
		},
	}
	got := rep.Fillers([]string{"um", "like"})
	want := []speech.FillerWord{{Word: "um", Count: 2}, {Word: "like", Count: 1}}
	if !slices.Equal(got, want) {
		t.Errorf("Fillers() = %v, want %v", got, want)
	}

	rep.Segments = nil
	rep.FullTranscription = "like like"
	got = rep.Fillers([]string{"um", "like"})
	want = []speech.FillerWord{{Word: "um", Count: 0}, {Word: "like", Count: 2}}
	if !slices.Equal(got, want) {
		t.Errorf("Fillers() from transcription = %v, want %v", got, want)
	}
}
