// Package google reads the trip ledger straight from the spreadsheet via
// the Sheets API. It is a read-only fallback for environments that have
// service-account credentials but no Apps Script deployment; mutations
// still go through the script, which owns row assignment.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/core"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Column order of the expense sheet, A through J.
var rawKeys = []string{
	"date", "item", "payer", "twd", "jpy", "note",
	"splitXiangTwd", "splitXiangJpy", "splitQianTwd", "splitQianJpy",
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var (
	_ sheets.LedgerReader  = (*Client)(nil)
	_ sheets.LedgerWriter  = (*Client)(nil)
	_ sheets.LedgerDeleter = (*Client)(nil)
)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Optional: GOOGLE_SHEET_NAME (default "記帳"), credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "記帳"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// FetchRows reads the whole sheet and rebuilds the script endpoint's row
// shape. The 1-based sheet position becomes rowIndex, so header rows come
// through too and the filter layer drops them exactly as with the script.
func (c *Client) FetchRows(ctx context.Context) ([]core.RawRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:J", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	rows := rowsFromValues(resp.Values)
	slog.DebugContext(ctx, "Read ledger from spreadsheet", "range", rng, "rows", len(rows))
	return rows, nil
}

// rowsFromValues rebuilds raw rows from sheet cell values. The 1-based
// sheet position becomes the rowIndex.
func rowsFromValues(values [][]any) []core.RawRow {
	rows := make([]core.RawRow, 0, len(values))
	for i, cells := range values {
		row := core.RawRow{"rowIndex": float64(i + 1)}
		for j, key := range rawKeys {
			if j < len(cells) {
				row[key] = cells[j]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Append is unsupported; the Apps Script endpoint owns writes.
func (c *Client) Append(context.Context, core.ExpenseRecord) error {
	return sheets.ErrMutationUnsupported
}

// Update is unsupported; the Apps Script endpoint owns writes.
func (c *Client) Update(context.Context, core.ExpenseRecord) error {
	return sheets.ErrMutationUnsupported
}

// Delete is unsupported; the Apps Script endpoint owns writes.
func (c *Client) Delete(context.Context, int64) error {
	return sheets.ErrMutationUnsupported
}
