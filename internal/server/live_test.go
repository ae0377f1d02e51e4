package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/podium/internal/breakdown"
	"github.com/MrWong99/podium/internal/live"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// mountTicked mounts a panel and advances it by ticks sampling intervals.
func (e *testEnv) mountTicked(t *testing.T, ticks int) *live.Panel {
	t.Helper()
	armed := e.clock.Armed()
	p, err := e.panels.Mount()
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	// sampler ticker + raise ticker
	e.clock.BlockUntil(armed + 2)
	for i := 1; i <= ticks; i++ {
		e.clock.Advance(live.DefaultTickInterval)
		want := uint64(i)
		waitFor(t, "tick", func() bool { return p.Store().Metrics().Tick >= want })
	}
	return p
}

func TestLivePanels_Lifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/live/panels", nil, "")
	wantStatus(t, resp, http.StatusCreated)
	created := decode[panelSummary](t, resp)
	if created.ID == "" {
		t.Fatal("mounted panel has no id")
	}

	list := decode[[]panelSummary](t, env.get(t, "/live/panels"))
	if len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("list = %+v, want [%s]", list, created.ID)
	}

	resp = env.get(t, "/live/panels/"+created.ID)
	wantStatus(t, resp, http.StatusOK)
	view := decode[live.View](t, resp)
	if view.Metrics == nil || view.Metrics.Snapshot.Speed != 120 {
		t.Errorf("view metrics = %+v, want initial snapshot", view.Metrics)
	}
	if view.Notification.Visible {
		t.Error("notification visible at mount")
	}

	resp = env.get(t, "/live/panels/"+created.ID+"/breakdown")
	wantStatus(t, resp, http.StatusOK)
	if items := decode[[]breakdown.Item](t, resp); len(items) != len(breakdown.Categories) {
		t.Errorf("breakdown has %d items, want %d", len(items), len(breakdown.Categories))
	}

	wantStatus(t, env.do(t, http.MethodDelete, "/live/panels/"+created.ID, nil, ""), http.StatusNoContent)
	wantStatus(t, env.do(t, http.MethodDelete, "/live/panels/"+created.ID, nil, ""), http.StatusNotFound)
	wantStatus(t, env.get(t, "/live/panels/"+created.ID), http.StatusNotFound)

	if list := decode[[]panelSummary](t, env.get(t, "/live/panels")); len(list) != 0 {
		t.Errorf("list after teardown = %+v, want empty", list)
	}
}

func TestLivePanels_UnknownID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for _, path := range []string{
		"/live/panels/missing",
		"/live/panels/missing/breakdown",
		"/live/panels/missing/charts/speed",
	} {
		resp := env.get(t, path)
		wantStatus(t, resp, http.StatusNotFound)
		if body := decode[errorBody](t, resp); !strings.Contains(body.Error, "not found") {
			t.Errorf("%s: error = %q", path, body.Error)
		}
	}
}

func TestLivePanelChart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	p := env.mountTicked(t, 3)

	resp := env.get(t, "/live/panels/"+p.ID()+"/charts/speed")
	wantStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	var sb strings.Builder
	if _, err := sb.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(sb.String(), "<svg") || !strings.Contains(sb.String(), "Speed") {
		t.Error("chart body is not an SVG titled Speed")
	}

	// Volume is not charted by default.
	wantStatus(t, env.get(t, "/live/panels/"+p.ID()+"/charts/volume"), http.StatusNotFound)
}

func TestLivePanelChart_EmptyWindow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	p := env.mountTicked(t, 0)
	wantStatus(t, env.get(t, "/live/panels/"+p.ID()+"/charts/clarity"), http.StatusNotFound)
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) stateFrame {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var f stateFrame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return f
}

func TestLivePanelSocket(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	p := env.mountTicked(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/live/panels/" + p.ID() + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	first := readFrame(t, ctx, conn)
	if first.Type != "state" || first.Metrics == nil || first.Metrics.Tick != 0 {
		t.Fatalf("initial frame = %+v, want state at tick 0", first)
	}

	env.clock.Advance(live.DefaultTickInterval)
	next := readFrame(t, ctx, conn)
	if next.Metrics.Tick != 1 {
		t.Errorf("pushed frame tick = %d, want 1", next.Metrics.Tick)
	}
	if next.Version <= first.Version {
		t.Errorf("version did not advance: %d -> %d", first.Version, next.Version)
	}
	if pts := next.Metrics.Windows["speed"]; len(pts) != 1 {
		t.Errorf("speed window has %d points, want 1", len(pts))
	}

	if err := env.panels.Teardown(p.ID()); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	_, _, err = conn.Read(ctx)
	if status := websocket.CloseStatus(err); status != websocket.StatusGoingAway {
		t.Errorf("close status = %v (err %v), want going away", status, err)
	}
}

func TestLivePanelSocket_UnknownPanel(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/live/panels/missing/ws"
	_, resp, err := websocket.Dial(ctx, url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("response = %v, want 404", resp)
	}
}

func TestLivePanelSocket_Origin(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(c *Config) { c.AllowedOrigins = []string{"dash.example.com"} })
	p := env.mountTicked(t, 0)
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/live/panels/" + p.ID() + "/ws"

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{name: "no origin", ok: true},
		{name: "same origin", origin: env.srv.URL, ok: true},
		{name: "allowed origin", origin: "https://dash.example.com", ok: true},
		{name: "foreign origin", origin: "http://evil.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			h := http.Header{}
			if tt.origin != "" {
				h.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: h})
			if tt.ok {
				if err != nil {
					t.Fatalf("Dial: %v", err)
				}
				defer conn.CloseNow()
				if f := readFrame(t, ctx, conn); f.Type != "state" {
					t.Errorf("first frame = %+v, want state", f)
				}
				return
			}
			if err == nil {
				conn.CloseNow()
				t.Fatal("foreign origin was accepted")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("response = %v, want 403", resp)
			}
		})
	}
}
