// Package gas talks to the Google Apps Script web app that fronts the trip
// spreadsheet. The script is the authoritative store: it assigns row
// indexes, and every mutation here is followed by a full re-fetch upstream.
package gas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/core"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/sheets"
)

const (
	actionAdd    = "add"
	actionEdit   = "edit"
	actionDelete = "delete"
)

type Client struct {
	httpClient *http.Client
	scriptURL  string
}

// Ensure interface conformance
var (
	_ sheets.LedgerReader  = (*Client)(nil)
	_ sheets.LedgerWriter  = (*Client)(nil)
	_ sheets.LedgerDeleter = (*Client)(nil)
)

// New creates a client for the given Apps Script deployment URL.
func New(scriptURL string) (*Client, error) {
	scriptURL = strings.TrimSpace(scriptURL)
	if scriptURL == "" {
		return nil, errors.New("missing script URL")
	}
	return &Client{
		httpClient: newPooledHTTPClient(),
		scriptURL:  scriptURL,
	}, nil
}

// newPooledHTTPClient builds an HTTP client with connection pooling and
// keep-alive tuned for the script.googleusercontent.com redirect chain.
func newPooledHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

type fetchResponse struct {
	Status  string        `json:"status"`
	Result  string        `json:"result"`
	Message string        `json:"message"`
	Data    []core.RawRow `json:"data"`
}

type mutationResponse struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

// deletePayload carries only the row key; the store needs nothing else to
// remove a row.
type deletePayload struct {
	Action   string `json:"action"`
	RowIndex int64  `json:"rowIndex"`
}

// mutationPayload is the POST body the script expects. RowIndex is null for
// adds; adds and edits carry the full record, deletes only the row index.
type mutationPayload struct {
	Action   string `json:"action"`
	RowIndex *int64 `json:"rowIndex"`

	Date          string `json:"date"`
	Item          string `json:"item"`
	Payer         string `json:"payer"`
	AmountTWD     int64  `json:"amountTwd"`
	AmountJPY     int64  `json:"amountJpy"`
	Note          string `json:"note"`
	SplitType     string `json:"splitType"`
	SplitXiangTWD int64  `json:"splitXiangTwd"`
	SplitXiangJPY int64  `json:"splitXiangJpy"`
	SplitQianTWD  int64  `json:"splitQianTwd"`
	SplitQianJPY  int64  `json:"splitQianJpy"`
}

// FetchRows reads the full ledger. The cache-busting timestamp keeps the
// Apps Script CDN from serving a stale deployment response.
func (c *Client) FetchRows(ctx context.Context) ([]core.RawRow, error) {
	url := c.scriptURL + "?t=" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ledger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch ledger: unexpected status %d", resp.StatusCode)
	}

	var fr fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, fmt.Errorf("decode ledger response: %w", err)
	}
	// The script reports failures inside a 200 response.
	if fr.Status == "error" || fr.Result == "error" {
		return nil, &sheets.StoreError{Message: fr.Message}
	}

	slog.DebugContext(ctx, "Fetched ledger rows", "count", len(fr.Data))
	return fr.Data, nil
}

// Append sends a new record; the store picks the row.
func (c *Client) Append(ctx context.Context, r core.ExpenseRecord) error {
	return c.submit(ctx, actionAdd, payloadFromRecord(actionAdd, nil, r))
}

// Update replaces the record at its row index in full.
func (c *Client) Update(ctx context.Context, r core.ExpenseRecord) error {
	if !r.Persisted() {
		return core.ErrNotPersisted
	}
	row := r.RowIndex
	return c.submit(ctx, actionEdit, payloadFromRecord(actionEdit, &row, r))
}

// Delete removes the row. Callers must have already rejected unpersisted
// records; this guard is the last line before the wire.
func (c *Client) Delete(ctx context.Context, rowIndex int64) error {
	if rowIndex <= core.UnpersistedRow {
		return core.ErrNotPersisted
	}
	return c.submit(ctx, actionDelete, deletePayload{Action: actionDelete, RowIndex: rowIndex})
}

func payloadFromRecord(action string, rowIndex *int64, r core.ExpenseRecord) mutationPayload {
	return mutationPayload{
		Action:        action,
		RowIndex:      rowIndex,
		Date:          storeDate(r.Date),
		Item:          strings.TrimSpace(r.Item),
		Payer:         string(r.Payer),
		AmountTWD:     r.AmountTWD,
		AmountJPY:     r.AmountJPY,
		Note:          strings.TrimSpace(r.Note),
		SplitType:     string(r.SplitMode),
		SplitXiangTWD: r.SplitXiangTWD,
		SplitXiangJPY: r.SplitXiangJPY,
		SplitQianTWD:  r.SplitQianTWD,
		SplitQianJPY:  r.SplitQianJPY,
	}
}

// storeDate rewrites a date into the slash-delimited form the sheet stores.
func storeDate(s string) string {
	if t, ok := core.ParseDate(s); ok {
		return t.Format("2006/01/02")
	}
	return strings.ReplaceAll(strings.TrimSpace(s), "-", "/")
}

func (c *Client) submit(ctx context.Context, action string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mutation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.scriptURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mutation request: %w", err)
	}
	// text/plain keeps the request a CORS "simple request"; Apps Script web
	// apps cannot answer preflights.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s row: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s row: unexpected status %d", action, resp.StatusCode)
	}

	var mr mutationResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return fmt.Errorf("decode %s response: %w", action, err)
	}
	if mr.Result != "success" {
		return &sheets.StoreError{Message: mr.Error}
	}

	slog.InfoContext(ctx, "Ledger mutation accepted", "action", action)
	return nil
}
