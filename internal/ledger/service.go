// Package ledger orchestrates the shared expense ledger: it pulls rows from
// the spreadsheet store, normalizes them into records, applies mutations, and
// keeps a local mirror plus a settlement view in sync.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/amqp"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/core"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/log"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/sheets"
)

// Mirror persists ledger snapshots locally so reads survive spreadsheet
// outages. Implemented by storage.SQLiteRepository.
type Mirror interface {
	ReplaceSnapshot(ctx context.Context, records []core.ExpenseRecord) error
	LoadSnapshot(ctx context.Context) ([]core.ExpenseRecord, error)
}

// EventPublisher announces applied mutations. Implemented by amqp.Client.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, action string, rowIndex int64, item string) error
}

// RecordInput carries the user-supplied fields of a ledger mutation.
// Split shares are only consulted in manual mode; in equal mode the
// service derives them.
type RecordInput struct {
	Date       string
	Item       string
	Payer      core.Party
	AmountTWD  int64
	AmountJPY  int64
	Note       string
	SplitMode  core.SplitMode
	XiangShare int64
}

// Service owns the in-memory ledger snapshot and coordinates mutations
// against the spreadsheet store. Every successful mutation is followed by
// a full re-fetch so row indexes never go stale.
type Service struct {
	store  sheets.Store
	mirror Mirror
	events EventPublisher
	layout core.SheetLayout
	logger *log.Logger

	mu      sync.RWMutex
	records []core.ExpenseRecord

	refreshing int32
	submitting int32
}

func NewService(store sheets.Store, layout core.SheetLayout, logger *log.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		layout: layout,
		logger: logger.WithComponent(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMirror attaches a local snapshot mirror.
func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

// WithEvents attaches a mutation event publisher.
func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// Refreshing reports whether a fetch is in flight.
func (s *Service) Refreshing() bool { return atomic.LoadInt32(&s.refreshing) == 1 }

// Submitting reports whether a mutation is in flight.
func (s *Service) Submitting() bool { return atomic.LoadInt32(&s.submitting) == 1 }

// Refresh re-fetches the full ledger from the store, replacing the snapshot.
// On fetch failure the previous snapshot is kept untouched.
func (s *Service) Refresh(ctx context.Context) ([]core.ExpenseRecord, error) {
	atomic.StoreInt32(&s.refreshing, 1)
	defer atomic.StoreInt32(&s.refreshing, 0)

	raw, err := s.store.FetchRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch ledger rows: %w", err)
	}

	normalized := make([]core.ExpenseRecord, 0, len(raw))
	for _, row := range raw {
		normalized = append(normalized, core.Normalize(row))
	}
	records := core.SelectValid(normalized, s.layout)

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "ledger refreshed",
		log.FieldRecordCount, len(records))

	if s.mirror != nil {
		if err := s.mirror.ReplaceSnapshot(ctx, records); err != nil {
			// Mirror is best-effort; the spreadsheet stays the source of truth
			s.logger.WarnContext(ctx, "failed to mirror snapshot", log.FieldError, err.Error())
		}
	}

	return s.copyRecords(), nil
}

// Records returns the current snapshot. If nothing has been fetched yet and
// a mirror is attached, the mirrored snapshot is served instead.
func (s *Service) Records(ctx context.Context) []core.ExpenseRecord {
	s.mu.RLock()
	loaded := s.records != nil
	s.mu.RUnlock()

	if !loaded && s.mirror != nil {
		if cached, err := s.mirror.LoadSnapshot(ctx); err == nil && len(cached) > 0 {
			s.mu.Lock()
			if s.records == nil {
				s.records = cached
			}
			s.mu.Unlock()
			s.logger.InfoContext(ctx, "serving mirrored snapshot",
				log.FieldRecordCount, len(cached))
		}
	}

	return s.copyRecords()
}

// Create validates and appends a new record, then re-fetches the ledger.
func (s *Service) Create(ctx context.Context, input RecordInput) ([]core.ExpenseRecord, error) {
	rec, err := s.buildRecord(core.UnpersistedRow, input)
	if err != nil {
		return nil, err
	}

	atomic.StoreInt32(&s.submitting, 1)
	defer atomic.StoreInt32(&s.submitting, 0)

	if err := s.store.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("append record: %w", err)
	}
	s.publishEvent(ctx, amqp.ActionAdd, core.UnpersistedRow, rec.Item)

	return s.Refresh(ctx)
}

// Update validates and rewrites an existing row, then re-fetches the ledger.
func (s *Service) Update(ctx context.Context, rowIndex int64, input RecordInput) ([]core.ExpenseRecord, error) {
	if rowIndex == core.UnpersistedRow {
		return nil, core.ErrNotPersisted
	}

	rec, err := s.buildRecord(rowIndex, input)
	if err != nil {
		return nil, err
	}

	atomic.StoreInt32(&s.submitting, 1)
	defer atomic.StoreInt32(&s.submitting, 0)

	if err := s.store.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("update row %d: %w", rowIndex, err)
	}
	s.publishEvent(ctx, amqp.ActionEdit, rowIndex, rec.Item)

	return s.Refresh(ctx)
}

// Delete removes a row, then re-fetches the ledger. Unpersisted rows are
// rejected locally before any network call.
func (s *Service) Delete(ctx context.Context, rowIndex int64) ([]core.ExpenseRecord, error) {
	if rowIndex == core.UnpersistedRow {
		return nil, core.ErrNotPersisted
	}

	atomic.StoreInt32(&s.submitting, 1)
	defer atomic.StoreInt32(&s.submitting, 0)

	if err := s.store.Delete(ctx, rowIndex); err != nil {
		return nil, fmt.Errorf("delete row %d: %w", rowIndex, err)
	}
	s.publishEvent(ctx, amqp.ActionDelete, rowIndex, "")

	return s.Refresh(ctx)
}

// Settlement computes per-currency balances over the current snapshot.
func (s *Service) Settlement(ctx context.Context) core.Settlement {
	return core.Settle(s.Records(ctx))
}

// Totals returns per-currency spending sums over the current snapshot.
func (s *Service) Totals(ctx context.Context) (twd, jpy int64) {
	return core.Totals(s.Records(ctx))
}

// buildRecord assembles and validates a full record from user input,
// deriving both parties' shares for the active currency.
func (s *Service) buildRecord(rowIndex int64, input RecordInput) (core.ExpenseRecord, error) {
	mode := input.SplitMode
	if mode == "" {
		mode = core.SplitEqual
	}

	rec := core.ExpenseRecord{
		RowIndex:  rowIndex,
		Date:      input.Date,
		Item:      input.Item,
		Payer:     input.Payer,
		AmountTWD: input.AmountTWD,
		AmountJPY: input.AmountJPY,
		Note:      input.Note,
		SplitMode: mode,
	}

	switch rec.Currency() {
	case core.CurrencyTWD:
		split := core.ComputeSplit(rec.AmountTWD, mode, input.XiangShare)
		rec.SplitXiangTWD, rec.SplitQianTWD = split.Xiang, split.Qian
	case core.CurrencyJPY:
		split := core.ComputeSplit(rec.AmountJPY, mode, input.XiangShare)
		rec.SplitXiangJPY, rec.SplitQianJPY = split.Xiang, split.Qian
	}

	if err := rec.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	return rec, nil
}

func (s *Service) publishEvent(ctx context.Context, action string, rowIndex int64, item string) {
	if s.events == nil {
		return
	}
	// Events are advisory; a broker outage must not fail the mutation
	if err := s.events.PublishLedgerEvent(ctx, action, rowIndex, item); err != nil {
		s.logger.WarnContext(ctx, "failed to publish ledger event",
			"action", action,
			log.FieldRowIndex, rowIndex,
			log.FieldError, err.Error())
	}
}

func (s *Service) copyRecords() []core.ExpenseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.ExpenseRecord, len(s.records))
	copy(out, s.records)
	return out
}
