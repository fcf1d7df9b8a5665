// Package worker mirrors the remote ledger into local storage. The worker
// reacts to mutation events from AMQP and also refreshes on a timer, so the
// mirror converges even when events are lost.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/amqp"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/core"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/log"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/sheets"
)

// SnapshotSink persists mirrored ledger snapshots. Implemented by
// storage.SQLiteRepository.
type SnapshotSink interface {
	ReplaceSnapshot(ctx context.Context, records []core.ExpenseRecord) error
}

// MirrorWorker pulls the full ledger and stores it locally.
type MirrorWorker struct {
	reader   sheets.LedgerReader
	sink     SnapshotSink
	layout   core.SheetLayout
	interval time.Duration
	logger   *log.Logger
}

func NewMirrorWorker(reader sheets.LedgerReader, sink SnapshotSink, layout core.SheetLayout, interval time.Duration, logger *log.Logger) *MirrorWorker {
	return &MirrorWorker{
		reader:   reader,
		sink:     sink,
		layout:   layout,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single mutation event by re-mirroring the ledger.
// The event only signals that something changed; the fetch is always full.
func (w *MirrorWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	w.logger.InfoContext(ctx, "processing ledger event",
		"action", msg.Action,
		log.FieldRowIndex, msg.RowIndex)
	return w.Mirror(ctx)
}

// Run refreshes the mirror on a timer until the context is done. A first
// mirror pass runs immediately so a restarted worker recovers missed events.
func (w *MirrorWorker) Run(ctx context.Context) error {
	if err := w.Mirror(ctx); err != nil {
		w.logger.WarnContext(ctx, "startup mirror failed", log.FieldError, err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "mirror worker stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.Mirror(ctx); err != nil {
				w.logger.ErrorContext(ctx, "periodic mirror failed", log.FieldError, err.Error())
			}
		}
	}
}

// Mirror fetches the full ledger and replaces the stored snapshot.
func (w *MirrorWorker) Mirror(ctx context.Context) error {
	raw, err := w.reader.FetchRows(ctx)
	if err != nil {
		return fmt.Errorf("fetch ledger rows: %w", err)
	}

	normalized := make([]core.ExpenseRecord, 0, len(raw))
	for _, row := range raw {
		normalized = append(normalized, core.Normalize(row))
	}
	records := core.SelectValid(normalized, w.layout)

	if err := w.sink.ReplaceSnapshot(ctx, records); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	w.logger.InfoContext(ctx, "ledger mirrored",
		log.FieldRecordCount, len(records))
	return nil
}
