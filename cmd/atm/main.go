package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/kiosk/internal/atm"
	"github.com/example/kiosk/internal/config"
	"github.com/example/kiosk/internal/console"
	"github.com/example/kiosk/pkg/audit"
)

func main() {
	// atm hash-pin <pin> prints a value for ATM_PIN_HASH.
	if len(os.Args) == 3 && os.Args[1] == "hash-pin" {
		hash, err := atm.HashPIN(os.Args[2])
		if err != nil {
			log.Fatalf("Failed to hash PIN: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := cfg.NewLogger(os.Stderr)
	logger.Debug("starting atm", "environment", cfg.Environment)

	chain := audit.NewChainLogger()
	if cfg.AuditLog != "" {
		if err := chain.ResumeFile(cfg.AuditLog); err != nil {
			logger.Warn("audit log not resumed, starting a new chain", "path", cfg.AuditLog, "error", err)
		}
	}
	ledger := atm.NewLedger(cfg.InitialBalance(), atm.WithAuditor(chain))

	var guard *atm.PINGuard
	if cfg.ATM.PINHash != "" {
		guard, err = atm.NewPINGuard(cfg.ATM.PINHash, cfg.ATM.MaxPINAttempts)
		if err != nil {
			log.Fatalf("Failed to configure PIN check: %v", err)
		}
	}

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
			logger.Warn("interrupt received, press Enter to exit or interrupt again to quit")
		case <-done:
		}
	}()

	menu := &console.ATMMenu{
		Prompt: console.NewPrompter(os.Stdin, os.Stdout),
		Ledger: ledger,
		PIN:    guard,
		Logger: logger,
	}
	runErr := menu.Run(ctx)

	if cfg.AuditLog != "" {
		if err := chain.AppendToFile(cfg.AuditLog); err != nil {
			logger.Error("failed to write audit log", "path", cfg.AuditLog, "error", err)
		}
	}

	switch {
	case runErr == nil, errors.Is(runErr, context.Canceled):
	case errors.Is(runErr, atm.ErrCardLocked):
		os.Exit(2)
	default:
		logger.Error("atm session ended", "error", runErr)
		os.Exit(1)
	}
}
