package gas

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/core"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/sheets"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty script URL")
	}
}

func TestFetchRowsSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Query().Get("t") == "" {
			t.Error("missing cache-busting timestamp")
		}
		io.WriteString(w, `{"data":[{"rowIndex":3,"date":"2026/01/05","item":"午餐","payer":"想想","jpy":"¥1,000"}]}`)
	})

	rows, err := c.FetchRows(context.Background())
	if err != nil {
		t.Fatalf("FetchRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	rec := core.Normalize(rows[0])
	if rec.AmountJPY != 1000 || rec.RowIndex != 3 {
		t.Errorf("normalized row = %+v", rec)
	}
}

func TestFetchRowsApplicationError(t *testing.T) {
	cases := []string{
		`{"status":"error","message":"權限不足"}`,
		`{"result":"error","message":"權限不足"}`,
	}
	for _, body := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, body)
		})
		_, err := c.FetchRows(context.Background())
		var se *sheets.StoreError
		if !errors.As(err, &se) {
			t.Fatalf("expected StoreError, got %v", err)
		}
		if se.Message != "權限不足" {
			t.Errorf("message = %q, want verbatim store message", se.Message)
		}
	}
}

func TestFetchRowsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.FetchRows(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if sheets.IsStoreError(err) {
		t.Errorf("transport failure classified as store rejection: %v", err)
	}
}

func TestAppendPayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "text/plain;charset=utf-8" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		io.WriteString(w, `{"result":"success"}`)
	})

	rec := core.ExpenseRecord{
		Date: "2026-01-05", Item: "纜車", Payer: core.PartyQian,
		AmountJPY: 3000, SplitMode: core.SplitEqual,
		SplitXiangJPY: 1500, SplitQianJPY: 1500,
	}
	if err := c.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got["action"] != "add" {
		t.Errorf("action = %v", got["action"])
	}
	if got["rowIndex"] != nil {
		t.Errorf("rowIndex = %v, want null for add", got["rowIndex"])
	}
	if got["date"] != "2026/01/05" {
		t.Errorf("date = %v, want slash-delimited", got["date"])
	}
	if got["splitXiangJpy"] != float64(1500) {
		t.Errorf("splitXiangJpy = %v", got["splitXiangJpy"])
	}
}

func TestUpdateRequiresPersistedRecord(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected network call")
	})
	err := c.Update(context.Background(), core.ExpenseRecord{RowIndex: core.UnpersistedRow, Item: "x"})
	if !errors.Is(err, core.ErrNotPersisted) {
		t.Errorf("err = %v, want ErrNotPersisted", err)
	}
}

func TestDeleteCarriesOnlyRowIndex(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		io.WriteString(w, `{"result":"success"}`)
	})
	if err := c.Delete(context.Background(), 7); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got["action"] != "delete" || got["rowIndex"] != float64(7) {
		t.Errorf("payload = %v", got)
	}
	if _, ok := got["item"]; ok {
		t.Error("delete payload should not carry record fields")
	}
}

func TestDeleteRejectsSentinelLocally(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected network call")
	})
	if err := c.Delete(context.Background(), core.UnpersistedRow); !errors.Is(err, core.ErrNotPersisted) {
		t.Errorf("err = %v, want ErrNotPersisted", err)
	}
}

func TestMutationRejection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"result":"error","error":"row not found"}`)
	})
	err := c.Delete(context.Background(), 99)
	var se *sheets.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if se.Message != "row not found" {
		t.Errorf("message = %q", se.Message)
	}
}
