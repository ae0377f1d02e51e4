package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/MrWong99/podium/internal/breakdown"
	"github.com/MrWong99/podium/internal/chart"
	"github.com/MrWong99/podium/internal/live"
	"github.com/MrWong99/podium/internal/observe"
	"github.com/MrWong99/podium/internal/window"
	"github.com/MrWong99/podium/pkg/speech"
)

// writeTimeout bounds a single WebSocket frame write.
const writeTimeout = 5 * time.Second

// fieldColors are the chart line colors per live field.
var fieldColors = map[speech.Field]string{
	speech.Speed:              "#8884d8",
	speech.Clarity:            "#82ca9d",
	speech.PitchVariation:     "#ffc658",
	speech.Volume:             "#ff7f50",
	speech.SentenceComplexity: "#a4de6c",
	speech.Posture:            "#d0ed57",
}

// panelSummary is one entry of GET /live/panels.
type panelSummary struct {
	ID        string    `json:"id"`
	MountedAt time.Time `json:"mountedAt"`
}

// stateFrame is the JSON pushed over the live WebSocket.
type stateFrame struct {
	Type string `json:"type"`
	live.View
}

func (s *Server) mountPanel(w http.ResponseWriter, _ *http.Request) {
	p, err := s.panels.Mount()
	if err != nil {
		slog.Error("server: failed to mount panel", "err", err)
		writeError(w, http.StatusInternalServerError, "mount panel: %v", err)
		return
	}
	writeJSON(w, http.StatusCreated, panelSummary{ID: p.ID(), MountedAt: p.MountedAt()})
}

func (s *Server) listPanels(w http.ResponseWriter, _ *http.Request) {
	out := make([]panelSummary, 0)
	for _, id := range s.panels.IDs() {
		if p, ok := s.panels.Get(id); ok {
			out = append(out, panelSummary{ID: p.ID(), MountedAt: p.MountedAt()})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// panel resolves the {id} URL parameter, writing a 404 when it is unknown.
func (s *Server) panel(w http.ResponseWriter, r *http.Request) (*live.Panel, bool) {
	id := chi.URLParam(r, "id")
	p, ok := s.panels.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "panel %q not found", id)
		return nil, false
	}
	return p, true
}

func (s *Server) getPanel(w http.ResponseWriter, r *http.Request) {
	p, ok := s.panel(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p.Store().View())
}

func (s *Server) teardownPanel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.panels.Teardown(id); err != nil {
		if errors.Is(err, live.ErrNotFound) {
			writeError(w, http.StatusNotFound, "panel %q not found", id)
			return
		}
		writeError(w, http.StatusInternalServerError, "teardown: %v", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) panelBreakdown(w http.ResponseWriter, r *http.Request) {
	p, ok := s.panel(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, breakdown.FromSnapshot(p.Store().Metrics().Snapshot))
}

func (s *Server) panelChart(w http.ResponseWriter, r *http.Request) {
	p, ok := s.panel(w, r)
	if !ok {
		return
	}
	field := speech.Field(chi.URLParam(r, "field"))
	pts, charted := p.Store().Metrics().Windows[field]
	if !charted {
		writeError(w, http.StatusNotFound, "field %q is not charted", field)
		return
	}
	spec := p.Config().Specs[field]
	opts := chart.Options{
		Title:    field.Label(),
		YName:    field.Unit(),
		YMin:     spec.Min,
		YMax:     spec.Max,
		TimeUnit: time.Millisecond,
		Color:    fieldColors[field],
	}
	s.renderChart(w, r, "live", window.Points(pts), opts)
}

// renderChart renders into a buffer first so a failure can still produce a
// JSON error.
func (s *Server) renderChart(w http.ResponseWriter, r *http.Request, source string, pts iter.Seq[window.Point], opts chart.Options) {
	var buf bytes.Buffer
	if err := chart.Render(&buf, pts, opts); err != nil {
		if errors.Is(err, chart.ErrNoData) {
			writeError(w, http.StatusNotFound, "no data to chart")
			return
		}
		observe.Logger(r.Context()).Warn("server: chart render failed", "source", source, "err", err)
		writeError(w, http.StatusInternalServerError, "render chart: %v", err)
		return
	}
	s.metrics.RecordChartRender(r.Context(), source)
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// panelSocket pushes a state frame on connect and after every store change
// until the client leaves or the panel is torn down.
func (s *Server) panelSocket(w http.ResponseWriter, r *http.Request) {
	p, ok := s.panel(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		slog.Warn("server: websocket accept failed", "panel", p.ID(), "err", err)
		return
	}
	defer conn.CloseNow()

	s.metrics.LiveSubscribers.Add(r.Context(), 1)
	defer s.metrics.LiveSubscribers.Add(context.WithoutCancel(r.Context()), -1)

	events, cancel := p.Store().Subscribe()
	defer cancel()

	// Clients only listen; CloseRead handles their control frames and
	// cancels ctx when they disconnect.
	ctx := conn.CloseRead(r.Context())

	if err := writeFrame(ctx, conn, p.Store()); err != nil {
		return
	}
	slog.Debug("server: live subscriber connected", "panel", p.ID())

	for {
		select {
		case <-ctx.Done():
			return
		case _, open := <-events:
			if !open {
				conn.Close(websocket.StatusGoingAway, "panel torn down")
				return
			}
			if err := writeFrame(ctx, conn, p.Store()); err != nil {
				slog.Debug("server: live subscriber write failed", "panel", p.ID(), "err", err)
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, store *live.Store) error {
	data, err := json.Marshal(stateFrame{Type: "state", View: store.View()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
