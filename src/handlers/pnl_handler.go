package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/username/krakenpnl/src/logger"
	"github.com/username/krakenpnl/src/processors"
	"github.com/username/krakenpnl/src/services"
	"github.com/username/krakenpnl/src/utils"
)

const dateLayout = "2006-01-02"

// PnLHandler serves computed FIFO PnL reports.
type PnLHandler struct {
	pnlService services.PnLService
}

func NewPnLHandler(pnlService services.PnLService) *PnLHandler {
	return &PnLHandler{pnlService: pnlService}
}

// HandleGetPnL handles GET /api/pnl?pair=XXBTZEUR&tier=starter&year=2024
// (or start/end dates, or an optional userref).
func (h *PnLHandler) HandleGetPnL(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	req, err := parseComputeRequest(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctxLogger.Info("Handling PnL request", "pair", req.Pair, "tier", req.Tier)

	report, err := h.pnlService.Compute(r.Context(), req)
	if err != nil {
		status := statusForComputeError(err)
		ctxLogger.Error("PnL computation failed", "pair", req.Pair, "status", status, "error", err)
		utils.SendJSONError(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func parseComputeRequest(r *http.Request) (services.ComputeRequest, error) {
	q := r.URL.Query()

	pair := q.Get("pair")
	if pair == "" {
		return services.ComputeRequest{}, fmt.Errorf("pair is required")
	}

	tier := q.Get("tier")
	if tier == "" {
		tier = "starter"
	}

	req := services.ComputeRequest{Pair: pair, Tier: tier}

	if refStr := q.Get("userref"); refStr != "" {
		ref, err := strconv.ParseInt(refStr, 10, 64)
		if err != nil {
			return services.ComputeRequest{}, fmt.Errorf("invalid userref %q", refStr)
		}
		req.UserRef = &ref
	}

	window, err := parseWindow(q.Get("year"), q.Get("start"), q.Get("end"))
	if err != nil {
		return services.ComputeRequest{}, err
	}
	req.Window = window
	return req, nil
}

func parseWindow(yearStr, startStr, endStr string) (processors.Window, error) {
	if yearStr != "" {
		if startStr != "" || endStr != "" {
			return processors.Window{}, fmt.Errorf("year cannot be combined with start/end")
		}
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			return processors.Window{}, fmt.Errorf("invalid year %q", yearStr)
		}
		return processors.YearWindow(year), nil
	}

	var window processors.Window
	if startStr != "" {
		start, err := time.Parse(dateLayout, startStr)
		if err != nil {
			return processors.Window{}, fmt.Errorf("invalid start date %q, expected YYYY-MM-DD", startStr)
		}
		window.Start = start.UTC()
	}
	if endStr != "" {
		end, err := time.Parse(dateLayout, endStr)
		if err != nil {
			return processors.Window{}, fmt.Errorf("invalid end date %q, expected YYYY-MM-DD", endStr)
		}
		// End dates are inclusive of the named day: the exclusive bound is
		// the following midnight.
		window.End = end.UTC().AddDate(0, 0, 1)
	}
	return window, nil
}

func statusForComputeError(err error) int {
	var malformed *processors.MalformedRecordError
	var insufficient *processors.InsufficientInventoryError
	var outOfOrder *processors.OutOfOrderTradeError
	switch {
	case errors.Is(err, processors.ErrUnknownTier):
		return http.StatusBadRequest
	case errors.As(err, &malformed), errors.As(err, &insufficient), errors.As(err, &outOfOrder):
		// History is inconsistent or incomplete; not retryable as-is.
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
