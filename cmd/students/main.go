package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/kiosk/internal/config"
	"github.com/example/kiosk/internal/console"
	"github.com/example/kiosk/internal/records"
	"github.com/example/kiosk/internal/snapshot"
	"github.com/example/kiosk/pkg/audit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := cfg.NewLogger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			// The menu notices ctx only after the pending line is read; a
			// second signal falls through to the default handler.
			stop()
			logger.Warn("interrupt received, press Enter to save and exit or interrupt again to quit")
		case <-done:
		}
	}()

	backend, closer, err := snapshot.Open(ctx, snapshot.Options{
		Backend:     cfg.Students.Backend,
		FilePath:    cfg.Students.File,
		FileKey:     cfg.Students.FileKey,
		SQLitePath:  cfg.Students.SQLitePath,
		DatabaseURL: cfg.Students.DatabaseURL,
		RedisAddr:   cfg.Students.RedisAddr,
		RedisKey:    cfg.Students.RedisKey,
	})
	if err != nil {
		log.Fatalf("Failed to open %s backend: %v", cfg.Students.Backend, err)
	}
	defer closer.Close()
	logger.Debug("student store backend ready", "backend", cfg.Students.Backend)

	chain := audit.NewChainLogger()
	if cfg.AuditLog != "" {
		if err := chain.ResumeFile(cfg.AuditLog); err != nil {
			logger.Warn("audit log not resumed, starting a new chain", "path", cfg.AuditLog, "error", err)
		}
	}
	opts := []records.Option{records.WithLogger(logger), records.WithAuditor(chain)}
	if cfg.Students.UniqueIDs {
		opts = append(opts, records.WithUniqueIDs())
	}

	store, err := records.Open(ctx, backend, opts...)
	if err != nil {
		logger.Warn("starting with an empty student list", "error", err)
	}

	menu := &console.StudentMenu{
		Prompt:     console.NewPrompter(os.Stdin, os.Stdout),
		Store:      store,
		ExportPath: cfg.Students.ExportPath,
		Logger:     logger,
	}
	runErr := menu.Run(ctx)

	if cfg.AuditLog != "" {
		if err := chain.AppendToFile(cfg.AuditLog); err != nil {
			logger.Error("failed to write audit log", "path", cfg.AuditLog, "error", err)
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("student session ended", "error", runErr)
		closer.Close()
		os.Exit(1)
	}
}
