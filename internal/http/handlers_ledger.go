package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/core"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/ledger"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/log"
)

// recordView is the wire form of a ledger record, field names matching the
// spreadsheet endpoint's vocabulary.
type recordView struct {
	RowIndex      int64  `json:"rowIndex"`
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

type currencyPair struct {
	TWD int64 `json:"twd"`
	JPY int64 `json:"jpy"`
}

type ledgerResponse struct {
	Records    []recordView   `json:"records"`
	Totals     currencyPair   `json:"totals"`
	Settlement settlementView `json:"settlement"`
	Stale      bool           `json:"stale"`
}

type settlementView struct {
	TWD          int64  `json:"twd"`
	JPY          int64  `json:"jpy"`
	TWDDirection string `json:"twdDirection"`
	JPYDirection string `json:"jpyDirection"`
}

// recordRequest is the mutation payload accepted from clients. The xiang
// split fields are only read in manual mode.
type recordRequest struct {
	Date          string `json:"date"`
	Item          string `json:"item"`
	Payer         string `json:"payer"`
	AmountTWD     int64  `json:"amountTwd"`
	AmountJPY     int64  `json:"amountJpy"`
	Note          string `json:"note"`
	SplitType     string `json:"splitType"`
	SplitXiangTWD int64  `json:"splitXiangTwd"`
	SplitXiangJPY int64  `json:"splitXiangJpy"`
}

func viewFromRecord(r core.ExpenseRecord) recordView {
	return recordView{
		RowIndex:      r.RowIndex,
		Date:          r.Date,
		Item:          r.Item,
		Payer:         string(r.Payer),
		AmountTWD:     r.AmountTWD,
		AmountJPY:     r.AmountJPY,
		Note:          r.Note,
		SplitType:     string(r.SplitMode),
		SplitXiangTWD: r.SplitXiangTWD,
		SplitXiangJPY: r.SplitXiangJPY,
		SplitQianTWD:  r.SplitQianTWD,
		SplitQianJPY:  r.SplitQianJPY,
	}
}

func directionString(d core.Direction) string {
	switch d {
	case core.QianOwesXiang:
		return "qian_owes_xiang"
	case core.XiangOwesQian:
		return "xiang_owes_qian"
	default:
		return "settled"
	}
}

func buildLedgerResponse(records []core.ExpenseRecord, stale bool) ledgerResponse {
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, viewFromRecord(rec))
	}

	twd, jpy := core.Totals(records)
	settlement := core.Settle(records)
	twdDir, _ := settlement.Balance(core.CurrencyTWD)
	jpyDir, _ := settlement.Balance(core.CurrencyJPY)

	return ledgerResponse{
		Records: views,
		Totals:  currencyPair{TWD: twd, JPY: jpy},
		Settlement: settlementView{
			TWD:          settlement.TWD,
			JPY:          settlement.JPY,
			TWDDirection: directionString(twdDir),
			JPYDirection: directionString(jpyDir),
		},
		Stale: stale,
	}
}

func (s *Server) decodeRecordRequest(r *http.Request) (ledger.RecordInput, error) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ledger.RecordInput{}, err
	}

	xiangShare := req.SplitXiangTWD
	if req.AmountJPY != 0 {
		xiangShare = req.SplitXiangJPY
	}

	return ledger.RecordInput{
		Date:       sanitizeInput(req.Date),
		Item:       sanitizeInput(req.Item),
		Payer:      core.Party(strings.TrimSpace(req.Payer)),
		AmountTWD:  req.AmountTWD,
		AmountJPY:  req.AmountJPY,
		Note:       sanitizeInput(req.Note),
		SplitMode:  core.SplitMode(strings.TrimSpace(req.SplitType)),
		XiangShare: xiangShare,
	}, nil
}

// handleLedger serves GET /api/ledger and POST /api/ledger.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.serveLedger(w, r)
	case http.MethodPost:
		input, err := s.decodeRecordRequest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		records, err := s.ledger.Create(r.Context(), input)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		rowIndex := core.UnpersistedRow
		if len(records) > 0 {
			rowIndex = records[len(records)-1].RowIndex
		}
		s.structured.LogMutation(r.Context(), "add", rowIndex,
			input.Item, string(input.Payer), input.AmountTWD, input.AmountJPY)
		writeJSON(w, http.StatusCreated, buildLedgerResponse(records, false))
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// serveLedger refreshes and returns the full ledger. When the store is
// unreachable but a previous snapshot exists, that snapshot is served with
// the stale flag set.
func (s *Server) serveLedger(w http.ResponseWriter, r *http.Request) {
	records, err := s.ledger.Refresh(r.Context())
	if err != nil {
		cached := s.ledger.Records(r.Context())
		if len(cached) == 0 {
			writeStoreError(w, err)
			return
		}
		log.FromContext(r.Context()).Warn("serving stale ledger", log.FieldError, err.Error())
		writeJSON(w, http.StatusOK, buildLedgerResponse(cached, true))
		return
	}
	writeJSON(w, http.StatusOK, buildLedgerResponse(records, false))
}

// handleLedgerRow serves POST /api/ledger/refresh, POST /api/ledger/{row},
// and DELETE /api/ledger/{row}.
func (s *Server) handleLedgerRow(w http.ResponseWriter, r *http.Request) {
	suffix := strings.TrimPrefix(r.URL.Path, "/api/ledger/")

	if suffix == "refresh" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		records, err := s.ledger.Refresh(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, buildLedgerResponse(records, false))
		return
	}

	rowIndex, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || rowIndex <= 0 {
		writeError(w, http.StatusNotFound, "invalid row index")
		return
	}

	switch r.Method {
	case http.MethodPost:
		input, err := s.decodeRecordRequest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		records, err := s.ledger.Update(r.Context(), rowIndex, input)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		s.structured.LogMutation(r.Context(), "edit", rowIndex,
			input.Item, string(input.Payer), input.AmountTWD, input.AmountJPY)
		writeJSON(w, http.StatusOK, buildLedgerResponse(records, false))

	case http.MethodDelete:
		records, err := s.ledger.Delete(r.Context(), rowIndex)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		s.structured.LogMutation(r.Context(), "delete", rowIndex, "", "", 0, 0)
		writeJSON(w, http.StatusOK, buildLedgerResponse(records, false))

	default:
		methodNotAllowed(w, "POST, DELETE")
	}
}

// handleSettlement serves GET /api/settlement over the cached snapshot.
func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	settlement := s.ledger.Settlement(r.Context())
	twdDir, _ := settlement.Balance(core.CurrencyTWD)
	jpyDir, _ := settlement.Balance(core.CurrencyJPY)

	writeJSON(w, http.StatusOK, settlementView{
		TWD:          settlement.TWD,
		JPY:          settlement.JPY,
		TWDDirection: directionString(twdDir),
		JPYDirection: directionString(jpyDir),
	})
}
