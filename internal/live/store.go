package live

import (
	"sync"
	"sync/atomic"

	"github.com/MrWong99/podium/internal/notify"
	"github.com/MrWong99/podium/internal/window"
	"github.com/MrWong99/podium/pkg/speech"
)

// Metrics is the metrics slice of a panel: the latest reading and the
// rolling windows it was appended to. A published Metrics value is never
// modified.
type Metrics struct {
	Tick       uint64                          `json:"tick"`
	CapturedAt int64                           `json:"capturedAt"` // unix milliseconds
	Snapshot   speech.Snapshot                 `json:"snapshot"`
	Windows    map[speech.Field][]window.Point `json:"windows"`
}

// Slice names the part of the store an [Event] refers to.
type Slice string

const (
	SliceMetrics      Slice = "metrics"
	SliceNotification Slice = "notification"
)

// Event announces that a slice was replaced.
type Event struct {
	Slice   Slice
	Version uint64
}

// View is a read of both slices.
type View struct {
	Version      uint64       `json:"version"`
	Metrics      *Metrics     `json:"metrics"`
	Notification notify.State `json:"notification"`
}

// subscriberBuffer is how many events a slow subscriber may lag behind
// before further events are dropped for it.
const subscriberBuffer = 8

// Store holds the state of one live panel in two independently written
// slices. The sampling loop is the only writer of the metrics slice and the
// notification scheduler the only writer of the notification slice. Each
// write swaps an immutable value, so readers never observe a partial update.
//
// Readers may call any exported method from any goroutine.
type Store struct {
	metrics atomic.Pointer[Metrics]
	notice  atomic.Pointer[notify.State]
	version atomic.Uint64

	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

// NewStore returns a store seeded with initial metrics and an idle
// notification.
func NewStore(initial *Metrics) *Store {
	s := &Store{subs: make(map[chan Event]struct{})}
	s.metrics.Store(initial)
	s.notice.Store(&notify.State{})
	return s
}

// Metrics returns the current metrics slice. Callers must not modify it.
func (s *Store) Metrics() *Metrics {
	return s.metrics.Load()
}

// Notification returns the current notification slice.
func (s *Store) Notification() notify.State {
	return *s.notice.Load()
}

// Version returns the number of writes applied to the store.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// View reads both slices.
func (s *Store) View() View {
	return View{
		Version:      s.Version(),
		Metrics:      s.Metrics(),
		Notification: s.Notification(),
	}
}

// Subscribe returns a channel receiving an [Event] after every write and a
// function that cancels the subscription. The channel is closed when the
// subscription is cancelled or the panel is torn down. Events are dropped
// for subscribers that fall behind; the latest state is always readable.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

func (s *Store) setMetrics(m *Metrics) {
	s.metrics.Store(m)
	s.notify(SliceMetrics)
}

func (s *Store) setNotification(st notify.State) {
	s.notice.Store(&st)
	s.notify(SliceNotification)
}

func (s *Store) notify(slice Slice) {
	v := s.version.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- Event{Slice: slice, Version: v}:
		default:
		}
	}
}

// close ends every subscription. It is called once both writers have exited.
func (s *Store) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		close(ch)
	}
	clear(s.subs)
}
