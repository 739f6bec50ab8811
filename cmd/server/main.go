package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/edvart/arena-inhouse/internal/config"
	"github.com/edvart/arena-inhouse/internal/engine"
	"github.com/edvart/arena-inhouse/internal/metrics"
	"github.com/edvart/arena-inhouse/internal/push"
	"github.com/edvart/arena-inhouse/internal/store"
	"github.com/edvart/arena-inhouse/internal/web"
)

func main() {
	// .env is optional, a set environment always wins.
	_ = godotenv.Load()

	cfg, err := config.Read()
	if err != nil {
		logrus.Fatalf("Failed to read configuration: %v", err)
	}

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("Invalid LOG_LEVEL %q, using info", cfg.LogLevel)
	}

	// Ensure the data directory exists
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	db, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := engine.New(ctx, db, engine.Options{
		BetWindow: cfg.BetWindow,
		Seed:      cfg.RNGSeed,
		Logger:    log,
	})
	if err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	m := metrics.New()

	var pushSvc *push.Service
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(db, push.Config{
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			VAPIDSubject:    cfg.VAPIDSubject,
		}, log)
		notifier := push.NewNotifier(pushSvc, log)
		go notifier.Run(ctx, eng.Subscribe())
	} else {
		log.Info("VAPID keys not set, web push disabled")
	}

	server := web.NewServer(eng, db, pushSvc, m, log, web.Config{
		AdminToken:   cfg.AdminToken,
		AllowOrigins: cfg.CORSAllowOrigins,
	})

	// Start SSE hub
	server.StartSSE(eng.Subscribe())

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server,
	}

	// Handle shutdown signals
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		log.Info("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Errorf("HTTP server shutdown error: %v", err)
		}
	}()

	log.Infof("Server listening on %s", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}

	log.Info("Server stopped")
}
