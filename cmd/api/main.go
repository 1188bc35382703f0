package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"threadlens/internal/archive"
	"threadlens/internal/cache/result"
	"threadlens/internal/config"
	"threadlens/internal/hn"
	"threadlens/internal/service"
)

func main() {
	logger := log.New(os.Stderr, "api: ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	embedder, completer, err := service.BuildClients(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("init llm clients: %v", err)
	}
	defer embedder.Close()
	defer completer.Close()

	store, err := archive.NewFromEnv(cfg.Archive, logger)
	if err != nil {
		logger.Fatalf("init archive: %v", err)
	}

	scraper := hn.NewClient(os.Getenv("HN_BASE_URL"))
	scraper.SetLogger(logger)

	svc := &service.Service{
		HN:         scraper,
		Embedder:   embedder,
		Completer:  completer,
		BaseConfig: cfg.Engine,
		Cache:      result.New(cfg.CacheMaxEntries, time.Duration(cfg.CacheTTLMinutes)*time.Minute),
		Archive:    store,
		Logger:     logger,
		Source:     "http://localhost" + cfg.Port,
	}

	srv := newServer(svc, logger)
	httpSrv := newHTTPServer(cfg.Port, srv.routes())

	logger.Printf("listening on %s (env=%s, provider=%s)", cfg.Port, cfg.Env, cfg.Provider)
	go func() {
		if err := httpSrv.Start(); err != nil {
			logger.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}
