package notify

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/podium/internal/clock"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type seqPicker struct {
	idx []int
	n   int
}

func (p *seqPicker) IntN(n int) int {
	v := p.idx[p.n%len(p.idx)] % n
	p.n++
	return v
}

// startScheduler runs a scheduler on a fake clock and returns the channel its
// states are published to.
func startScheduler(t *testing.T, c Cadence, picks ...int) (*clock.Fake, <-chan State, func()) {
	t.Helper()
	fake := clock.NewFake(epoch)
	states := make(chan State, 16)
	s, err := New(DefaultCorpus, func(st State) { states <- st },
		WithCadence(c),
		WithClock(fake),
		WithPicker(&seqPicker{idx: append([]int{0}, picks...)}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	fake.BlockUntil(1)

	stop := func() {
		cancel()
		<-done
	}
	t.Cleanup(stop)
	return fake, states, stop
}

func receive(t *testing.T, states <-chan State) State {
	t.Helper()
	select {
	case st := <-states:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("no state published")
		return State{}
	}
}

func expectQuiet(t *testing.T, states <-chan State) {
	t.Helper()
	select {
	case st := <-states:
		t.Fatalf("unexpected state published: %+v", st)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_RaiseThenHide(t *testing.T) {
	t.Parallel()

	fake, states, _ := startScheduler(t, Standard)

	fake.Advance(2999 * time.Millisecond)
	expectQuiet(t, states)

	fake.Advance(time.Millisecond)
	st := receive(t, states)
	if !st.Visible {
		t.Fatal("raised state is not visible")
	}
	if st.Message != DefaultCorpus[0] {
		t.Errorf("Message = %q, want %q", st.Message, DefaultCorpus[0])
	}
	if want := epoch.Add(3 * time.Second).UnixMilli(); st.RaisedAt != want {
		t.Errorf("RaisedAt = %d, want %d", st.RaisedAt, want)
	}

	fake.Advance(1999 * time.Millisecond)
	expectQuiet(t, states)

	fake.Advance(time.Millisecond)
	hidden := receive(t, states)
	if hidden.Visible {
		t.Error("state still visible after dwell")
	}
	if hidden.Message != st.Message || hidden.RaisedAt != st.RaisedAt {
		t.Errorf("hide changed the message: got %+v, raised %+v", hidden, st)
	}
}

func TestScheduler_ReraiseOverwritesAndRearmsHide(t *testing.T) {
	t.Parallel()

	// Dwell longer than the raise interval: the second raise lands while the
	// first tip is still visible.
	fake, states, _ := startScheduler(t, Cadence{Raise: 4 * time.Second, Dwell: 6 * time.Second}, 3)

	fake.Advance(4 * time.Second)
	first := receive(t, states)

	fake.Advance(4 * time.Second)
	second := receive(t, states)
	if !second.Visible {
		t.Fatal("second raise is not visible")
	}
	if second.Message != DefaultCorpus[3] {
		t.Errorf("second Message = %q, want %q", second.Message, DefaultCorpus[3])
	}
	if second.RaisedAt <= first.RaisedAt {
		t.Errorf("second RaisedAt %d not after first %d", second.RaisedAt, first.RaisedAt)
	}

	// t=10s: the first raise's hide would have fired here.
	fake.Advance(2 * time.Second)
	expectQuiet(t, states)
}

func TestScheduler_StopHaltsBothTimers(t *testing.T) {
	t.Parallel()

	fake, states, stop := startScheduler(t, Standard)
	fake.Advance(3 * time.Second)
	_ = receive(t, states)
	if got := fake.Armed(); got != 2 {
		t.Fatalf("Armed() while raised = %d, want 2", got)
	}

	stop()
	if got := fake.Armed(); got != 0 {
		t.Errorf("Armed() after stop = %d, want 0", got)
	}
	fake.Advance(30 * time.Second)
	expectQuiet(t, states)
}

func TestScheduler_RaiseIsUniform(t *testing.T) {
	t.Parallel()

	s, err := New(DefaultCorpus, nil, WithPicker(rand.New(rand.NewPCG(1, 2))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const draws = 70_000
	counts := make(map[string]int)
	for i := range draws {
		st := s.raise(epoch.Add(time.Duration(i) * time.Second))
		counts[st.Message]++
	}

	want := draws / len(DefaultCorpus)
	for _, msg := range DefaultCorpus {
		got := counts[msg]
		if got < want*9/10 || got > want*11/10 {
			t.Errorf("%q drawn %d times, want about %d", msg, got, want)
		}
	}
	if len(counts) != len(DefaultCorpus) {
		t.Errorf("drew %d distinct messages, want %d", len(counts), len(DefaultCorpus))
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil); !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("New(nil) error = %v, want ErrEmptyCorpus", err)
	}
	if _, err := New([]string{"ok", "  "}, nil); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("New(blank) error = %v, want ErrEmptyMessage", err)
	}
	if _, err := New(DefaultCorpus, nil, WithCadence(Cadence{Raise: time.Second})); err == nil {
		t.Error("New with zero dwell: want error")
	}
}

func TestNew_CopiesCorpus(t *testing.T) {
	t.Parallel()

	corpus := slices.Clone(DefaultCorpus)
	s, err := New(corpus, nil, WithPicker(&seqPicker{idx: []int{0}}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	corpus[0] = "mutated"
	if got := s.raise(epoch).Message; got != DefaultCorpus[0] {
		t.Errorf("Message = %q, want %q", got, DefaultCorpus[0])
	}
}

func TestCadenceByName(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]Cadence{"standard": Standard, "relaxed": Relaxed} {
		got, ok := CadenceByName(name)
		if !ok || got != want {
			t.Errorf("CadenceByName(%q) = %v, %v; want %v, true", name, got, ok, want)
		}
	}
	if _, ok := CadenceByName("frantic"); ok {
		t.Error(`CadenceByName("frantic") ok = true, want false`)
	}
}
