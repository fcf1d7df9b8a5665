package sheets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/core"
)

// Ports for the backing ledger store.
type (
	// LedgerReader fetches the full raw row set. Rows come back undecoded;
	// normalization and filtering are the caller's job.
	LedgerReader interface {
		FetchRows(ctx context.Context) ([]core.RawRow, error)
	}

	// LedgerWriter appends or fully replaces one record. The store assigns
	// row indexes on append; updates are keyed by the record's RowIndex.
	LedgerWriter interface {
		Append(ctx context.Context, r core.ExpenseRecord) error
		Update(ctx context.Context, r core.ExpenseRecord) error
	}

	// LedgerDeleter removes one row, keyed solely by row index.
	LedgerDeleter interface {
		Delete(ctx context.Context, rowIndex int64) error
	}
)

// Store combines all ledger store capabilities.
type Store interface {
	LedgerReader
	LedgerWriter
	LedgerDeleter
}

// ErrMutationUnsupported is returned by read-only backends.
var ErrMutationUnsupported = errors.New("backend does not support ledger mutations")

// StoreError is an application-level rejection from the store: the request
// reached the backend but was refused, with the store's own message carried
// verbatim. Transport failures are plain wrapped errors, not StoreErrors.
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	if e.Message == "" {
		return "store rejected the request"
	}
	return fmt.Sprintf("store rejected the request: %s", e.Message)
}

// IsStoreError reports whether err is an application-level store rejection.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
