package live

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/podium/internal/clock"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(quietConfig(), WithClock(clock.NewFake(epoch)))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManager_MountGetTeardown(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	a, err := m.Mount()
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	b, err := m.Mount()
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	if _, err := uuid.Parse(a.ID()); err != nil {
		t.Errorf("panel ID %q is not a UUID: %v", a.ID(), err)
	}
	if a.ID() == b.ID() {
		t.Fatal("two panels share an ID")
	}

	ids := m.IDs()
	want := []string{a.ID(), b.ID()}
	slices.Sort(want)
	if !slices.Equal(ids, want) {
		t.Errorf("IDs() = %v, want %v", ids, want)
	}

	got, ok := m.Get(a.ID())
	if !ok || got != a {
		t.Errorf("Get(%q) = %v, %v; want panel a", a.ID(), got, ok)
	}

	if err := m.Teardown(a.ID()); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	if _, ok := m.Get(a.ID()); ok {
		t.Error("torn down panel still listed")
	}
	if err := m.Teardown(a.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Teardown error = %v, want ErrNotFound", err)
	}
}

func TestManager_SetConfigAppliesToNewPanels(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	old, err := m.Mount()
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	cfg := quietConfig()
	cfg.TickInterval = 5 * time.Second
	cfg.WindowSize = 4
	if err := m.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	fresh, err := m.Mount()
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if got := fresh.Config().WindowSize; got != 4 {
		t.Errorf("new panel window size = %d, want 4", got)
	}
	if got := old.Config().WindowSize; got != 10 {
		t.Errorf("existing panel window size = %d, want 10", got)
	}
}

func TestManager_SetConfigRejectsInvalid(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	bad := quietConfig()
	bad.Corpus = []string{}
	if err := m.SetConfig(bad); err == nil {
		t.Fatal("SetConfig with empty corpus: want error")
	}
	if len(m.Config().Corpus) == 0 {
		t.Error("invalid config replaced the current one")
	}
}

func TestManager_Close(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	for range 3 {
		if _, err := m.Mount(); err != nil {
			t.Fatalf("Mount: %v", err)
		}
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := len(m.IDs()); n != 0 {
		t.Errorf("%d panels left after Close", n)
	}
}
