package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrWong99/podium/internal/analysis"
	"github.com/MrWong99/podium/internal/breakdown"
	"github.com/MrWong99/podium/internal/chart"
	"github.com/MrWong99/podium/internal/observe"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temporary file.
const multipartMemory = 32 << 20

// seriesCharts are the display settings of each report series.
var seriesCharts = map[analysis.Series]chart.Options{
	analysis.SeriesPitch:        {Title: "Pitch", YName: "Hz", Color: "#8884d8"},
	analysis.SeriesEnergy:       {Title: "Energy", YName: "energy", Color: "#82ca9d"},
	analysis.SeriesSpeakingRate: {Title: "Speaking Rate", YName: "wpm", Color: "#ffc658"},
	analysis.SeriesConfidence:   {Title: "Confidence", YName: "confidence", YMin: 0, YMax: 1, Color: "#ff7f50"},
}

// analysisView is the body of GET and POST /analysis.
type analysisView struct {
	Busy   bool             `json:"busy"`
	Result *analysis.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func (s *Server) submitAnalysis(w http.ResponseWriter, r *http.Request) {
	log := observe.Logger(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds %d bytes", tooLarge.Limit)
			return
		}
		writeError(w, http.StatusBadRequest, "parse upload: %v", err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(analysis.VideoField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing %q file field", analysis.VideoField)
		return
	}
	defer file.Close()

	// The backend may take minutes; the client timeout bounds the call, not
	// the browser connection.
	res, err := s.analyses.Submit(context.WithoutCancel(r.Context()), header.Filename, file)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, analysisView{Result: res})
	case errors.Is(err, analysis.ErrBusy):
		writeError(w, http.StatusConflict, "an analysis is already in progress")
	case errors.Is(err, analysis.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "analysis is shutting down")
	default:
		log.Warn("server: analysis failed", "filename", header.Filename, "err", err)
		writeJSON(w, http.StatusBadGateway, analysisView{Result: s.analyses.Current(), Error: err.Error()})
	}
}

func (s *Server) getAnalysis(w http.ResponseWriter, _ *http.Request) {
	res := s.analyses.Current()
	view := analysisView{Busy: s.analyses.Busy(), Result: res}
	if res == nil {
		view.Error = "no report yet"
		writeJSON(w, http.StatusNotFound, view)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// current returns the latest result, writing a 404 when there is none.
func (s *Server) current(w http.ResponseWriter) (*analysis.Result, bool) {
	res := s.analyses.Current()
	if res == nil {
		writeError(w, http.StatusNotFound, "no report yet")
		return nil, false
	}
	return res, true
}

func (s *Server) analysisPoints(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.current(w)
	if !ok {
		return
	}
	records := res.Records
	if records == nil {
		records = []analysis.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) analysisChart(w http.ResponseWriter, r *http.Request) {
	series := analysis.Series(chi.URLParam(r, "series"))
	if !series.IsValid() {
		writeError(w, http.StatusNotFound, "unknown series %q", series)
		return
	}
	res, ok := s.current(w)
	if !ok {
		return
	}
	opts := seriesCharts[series]
	opts.TimeUnit = time.Second
	s.renderChart(w, r, "report", analysis.Project(res.Records, series), opts)
}

func (s *Server) analysisBreakdown(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.current(w)
	if !ok {
		return
	}
	fillers := res.Report.Fillers(s.fillerWords())
	writeJSON(w, http.StatusOK, breakdown.FromReport(res.Report, fillers))
}

func (s *Server) analysisFillers(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.current(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.Report.Fillers(s.fillerWords()))
}
