package http

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/weather"
)

// handleWeather serves GET /api/weather.
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	if s.weather == nil {
		writeError(w, http.StatusNotImplemented, "weather is not configured")
		return
	}

	report, err := s.weather.Current(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type dashboardResponse struct {
	Ledger  ledgerResponse  `json:"ledger"`
	Weather *weather.Report `json:"weather,omitempty"`
}

// handleDashboard serves GET /api/dashboard: the ledger and current weather
// fetched in parallel. A weather failure degrades to a missing field, a
// ledger failure fails the whole request.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	var resp dashboardResponse

	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() error {
		records, err := s.ledger.Refresh(ctx)
		if err != nil {
			cached := s.ledger.Records(ctx)
			if len(cached) == 0 {
				return err
			}
			resp.Ledger = buildLedgerResponse(cached, true)
			return nil
		}
		resp.Ledger = buildLedgerResponse(records, false)
		return nil
	})

	if s.weather != nil {
		g.Go(func() error {
			report, err := s.weather.Current(ctx)
			if err != nil {
				s.logger.WarnContext(ctx, "weather fetch failed", "error", err.Error())
				return nil
			}
			resp.Weather = &report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
