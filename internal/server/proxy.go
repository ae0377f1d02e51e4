package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// newBackendProxy forwards requests unchanged to the analysis backend at
// rawURL. Backend failures become a 502 with a JSON error body.
func newBackendProxy(rawURL string) (http.Handler, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("server: parse backend url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("server: backend url %q must be absolute", rawURL)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Warn("server: backend proxy failed", "path", r.URL.Path, "err", err)
			writeError(w, http.StatusBadGateway, "backend unavailable: %v", err)
		},
	}, nil
}
