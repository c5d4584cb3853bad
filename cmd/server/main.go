// Command server runs the go-send HTTP service: identity directory,
// single-use share links, inbox push delivery, session registry, and
// access-request channel.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/VinMeld/go-send/internal/blob"
	"github.com/VinMeld/go-send/internal/config"
	"github.com/VinMeld/go-send/internal/coordinator"
	"github.com/VinMeld/go-send/internal/httpapi"
	"github.com/VinMeld/go-send/internal/identity"
	"github.com/VinMeld/go-send/internal/inbox"
	"github.com/VinMeld/go-send/internal/requests"
	"github.com/VinMeld/go-send/internal/sessions"
	"github.com/VinMeld/go-send/internal/shares"
	"github.com/VinMeld/go-send/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		port        string
		kvBackend   string
		dataDir     string
		shutdownSec int
	)
	flagSet := pflag.NewFlagSet("go-send", pflag.ContinueOnError)
	flagSet.StringVar(&port, "port", "", "listen port, overrides $PORT (default 8080)")
	flagSet.StringVar(&kvBackend, "kv", "mem", "KV backend: mem or pebble")
	flagSet.StringVar(&dataDir, "data-dir", "", "storage directory, overrides $DATA_DIR")
	flagSet.IntVar(&shutdownSec, "shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg := config.Load()
	if port != "" {
		cfg.ListenPort = port
	}
	if cfg.ListenPort == "" {
		cfg.ListenPort = "8080"
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	kv, err := openStore(kvBackend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open KV store: %w", err)
	}
	defer kv.Close()

	blobStore, err := openBlobStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to init blob store: %w", err)
	}

	coord := coordinator.New(time.Minute)
	defer coord.Close()

	idSvc := identity.New(kv)
	shareSvc := shares.New(kv, blobStore, coord, idSvc, cfg)
	inboxSvc := inbox.New(kv, blobStore, idSvc, cfg)
	sessionSvc := sessions.New(kv, inboxSvc, idSvc, cfg)
	requestSvc := requests.New(kv, idSvc, cfg)

	handler := httpapi.NewRouter(&httpapi.App{
		Identity: idSvc,
		Shares:   shareSvc,
		Inbox:    inboxSvc,
		Sessions: sessionSvc,
		Requests: requestSvc,
		Cfg:      cfg,
		Log:      log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ListenPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", srv.Addr, "kv", kvBackend, "storage", cfg.StorageType)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}

func openStore(backend, dataDir string) (store.KV, error) {
	switch backend {
	case "pebble":
		if dataDir == "" {
			dataDir = "server_data"
		}
		return store.OpenPebbleKV(dataDir+"/kv", time.Minute)
	case "", "mem":
		return store.NewMemKV(time.Minute), nil
	default:
		return nil, fmt.Errorf("unknown KV backend %q", backend)
	}
}

func openBlobStore(cfg config.Config) (blob.Store, error) {
	if cfg.StorageType == "s3" {
		if cfg.AWSBucket == "" {
			return nil, fmt.Errorf("AWS_BUCKET required for s3 storage")
		}
		return blob.NewS3Store(context.Background(), cfg.AWSBucket, cfg.AWSRegion)
	}
	return blob.NewLocalStore(cfg.DataDir), nil
}
