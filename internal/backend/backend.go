// Package backend selects the ledger store implementation from configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/config"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/log"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/sheets"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/sheets/gas"
	gsheet "github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/sheets/google"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/sheets/memory"
)

// Type identifies a ledger store implementation.
type Type string

const (
	// GASBackend talks to the Apps Script web app (full read/write).
	GASBackend Type = "gas"
	// SheetsBackend reads via the Sheets API; mutations are unsupported.
	SheetsBackend Type = "sheets"
	// MemoryBackend is an in-process store for development and tests.
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string { return string(t) }

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case GASBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Types returns all valid backend types.
func Types() []Type {
	return []Type{GASBackend, SheetsBackend, MemoryBackend}
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result contains the store instance and optional cleanup function.
type Result struct {
	Store   sheets.Store
	Cleanup CleanupFunc
}

// Factory creates ledger stores based on configuration.
type Factory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *Factory {
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateStore builds the store named by cfg.LedgerBackend.
func (f *Factory) CreateStore(ctx context.Context, cfg *config.Config) (*Result, error) {
	backendType := Type(cfg.LedgerBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.LedgerBackend)
	}

	switch backendType {
	case GASBackend:
		store, err := gas.New(cfg.ScriptURL)
		if err != nil {
			return nil, fmt.Errorf("initialize apps script client: %w", err)
		}
		f.logger.InfoContext(ctx, "initialized apps script backend")
		return &Result{Store: store}, nil

	case SheetsBackend:
		store, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize sheets client: %w", err)
		}
		f.logger.InfoContext(ctx, "initialized read-only sheets backend",
			"spreadsheet_id", cfg.GoogleSpreadsheetID)
		return &Result{Store: store}, nil

	case MemoryBackend:
		store := memory.New(cfg.SheetLayout())
		f.logger.InfoContext(ctx, "initialized in-memory backend")
		return &Result{Store: store}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", backendType)
	}
}
