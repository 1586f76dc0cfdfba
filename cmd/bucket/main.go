// Copyright 2025 Certen Protocol
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certen/cap-history/pkg/bucket"
	"github.com/certen/cap-history/pkg/config"
	"github.com/certen/cap-history/pkg/metrics"
	"github.com/certen/cap-history/pkg/server"
	"github.com/certen/cap-history/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := dbm.NewDB(cfg.DBName, dbm.BackendType(cfg.DBBackend), cfg.DataDir)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	kv := store.NewCometKV(db)

	reg := metrics.New(prometheus.DefaultRegisterer)

	var notifier bucket.Notifier = bucket.NopNotifier{}
	if cfg.RouterURL != "" {
		notifier = bucket.NewHTTPNotifier(cfg.RouterURL, cfg.NotifyTimeout)
	}

	b, err := loadOrCreateBucket(kv, cfg, notifier)
	if err != nil {
		log.Fatalf("load bucket: %v", err)
	}
	for _, w := range cfg.Writers {
		b.AddWriter(w)
	}
	b.SetIgnoreRateLimit(cfg.IgnoreRateLimit)

	handlers := server.NewBucketHandlers(b, reg, log.New(log.Writer(), "[BucketAPI] ", log.LstdFlags))

	mux := http.NewServeMux()
	handlers.Routes(mux)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.WithRequestID(mux, nil),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metricsMux,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go runSaveLoop(ctx, kv, b, cfg.SaveEvery)

	go func() {
		log.Printf("bucket API listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	go func() {
		log.Printf("metrics listening on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown: %v", err)
	}

	if err := store.Save(kv, store.Export(b)); err != nil {
		log.Printf("final save: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("db close: %v", err)
	}

	log.Printf("stopped")
}

// loadOrCreateBucket rebuilds a bucket from kv's persisted state, or
// starts a fresh one at cfg.NextOffset if nothing has ever been saved.
func loadOrCreateBucket(kv store.KV, cfg *config.Config, notifier bucket.Notifier) (*bucket.Bucket, error) {
	snap, ok, err := store.Load(kv)
	if err != nil {
		return nil, err
	}
	if !ok {
		return bucket.New(cfg.ContractID, cfg.NextOffset, notifier), nil
	}
	return store.Rebuild(snap, notifier)
}

// runSaveLoop persists b's full state to kv every interval, until ctx
// is cancelled.
func runSaveLoop(ctx context.Context, kv store.KV, b *bucket.Bucket, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Save(kv, store.Export(b)); err != nil {
				log.Printf("periodic save: %v", err)
			}
		}
	}
}
