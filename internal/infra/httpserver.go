package infra

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPServer runs the API's http.Server with graceful shutdown.
type HTTPServer struct {
	srv *http.Server
}

// NewHTTPServer builds the server around the router. The write timeout
// comes from configuration because a process request holds its connection
// for the whole composite-and-encode cycle.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{srv: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		MaxHeaderBytes:    1 << 20,
	}}
}

// Start blocks serving requests until the server stops. A server closed
// by Shutdown reports no error.
func (s *HTTPServer) Start() error {
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until ctx expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
