// Command payroll-node runs the payroll node: it opens the local storage,
// loads the compiled circuit artifacts and serves the audit API.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/veilpay/payroll-node/api"
	"github.com/veilpay/payroll-node/db"
	"github.com/veilpay/payroll-node/db/pebbledb"
	"github.com/veilpay/payroll-node/log"
	"github.com/veilpay/payroll-node/prover"
	"github.com/veilpay/payroll-node/storage"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level, cfg.Log.Output)
	log.Infow("starting payroll-node", "datadir", cfg.Datadir)

	if err := os.MkdirAll(cfg.Datadir, 0o750); err != nil {
		log.Fatalf("failed to create data directory: %v", err)
	}
	database, err := pebbledb.New(db.Options{Path: filepath.Join(cfg.Datadir, "db")})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	stg := storage.New(database)
	defer stg.Close()

	artifacts, err := prover.LoadArtifacts(cfg.Prover.ArtifactsDir)
	if err != nil {
		log.Fatalf("failed to load circuit artifacts from %s: %v (run circuit-compile first)",
			cfg.Prover.ArtifactsDir, err)
	}
	proofService := prover.NewService(artifacts, cfg.Prover.MaxConcurrent)

	if _, err := api.New(&api.APIConfig{
		Host:    cfg.API.Host,
		Port:    cfg.API.Port,
		Storage: stg,
		Prover:  proofService,
	}); err != nil {
		log.Fatalf("failed to start API: %v", err)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("received signal, shutting down", "signal", sig.String())
}
