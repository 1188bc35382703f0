package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"threadlens/internal/service"
)

// httpServer wraps the listener with h2c so HTTP/2 clients work without TLS.
type httpServer struct {
	inner *http.Server
	log   *log.Logger
}

func newHTTPServer(port string, handler http.Handler) *httpServer {
	return &httpServer{
		inner: &http.Server{
			Addr:    port,
			Handler: h2c.NewHandler(handler, &http2.Server{}),
		},
		log: log.Default(),
	}
}

func (s *httpServer) Start() error {
	s.log.Printf("Starting API server on %s", s.inner.Addr)
	if err := s.inner.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *httpServer) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}

type server struct {
	svc *service.Service
	log *log.Logger
}

func newServer(svc *service.Service, logger *log.Logger) *server {
	return &server{svc: svc, log: logger}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/top-stories", s.handleTopStories)
	mux.HandleFunc("/api/stories/", s.handleStory)
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/watch/", s.handleWatch)
	return cors(mux)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
