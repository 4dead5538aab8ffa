package reports

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-retail/meridian/internal/platform/httpx"
	"github.com/meridian-retail/meridian/internal/shared"
)

// ReportService defines the service contract used by the handler.
type ReportService interface {
	ProfitAndLoss(ctx context.Context, rng DateRange) (ProfitAndLoss, error)
	BalanceSheet(ctx context.Context) (BalanceSheet, error)
	CustomerReport(ctx context.Context, customerID int64, rng DateRange) (Statement, error)
	VendorReport(ctx context.Context, vendorID int64, rng DateRange) (Statement, error)
}

// Handler serves the single report endpoint, dispatching on ?type=.
type Handler struct {
	logger  *slog.Logger
	service ReportService
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service ReportService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.report)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	rng, ok := dateRange(w, r)
	if !ok {
		return
	}
	switch r.URL.Query().Get("type") {
	case "profit-loss":
		report, err := h.service.ProfitAndLoss(r.Context(), rng)
		h.respond(w, report, err, "profit and loss")
	case "balance-sheet":
		report, err := h.service.BalanceSheet(r.Context())
		h.respond(w, report, err, "balance sheet")
	case "customer-report":
		id, ok := counterpartyID(w, r, "customerId")
		if !ok {
			return
		}
		report, err := h.service.CustomerReport(r.Context(), id, rng)
		h.respond(w, report, err, "customer report")
	case "vendor-report":
		id, ok := counterpartyID(w, r, "vendorId")
		if !ok {
			return
		}
		report, err := h.service.VendorReport(r.Context(), id, rng)
		h.respond(w, report, err, "vendor report")
	default:
		httpx.RespondError(w, shared.NewValidationError("type", "must be one of profit-loss, balance-sheet, customer-report, vendor-report"))
	}
}

func (h *Handler) respond(w http.ResponseWriter, report any, err error, name string) {
	if err != nil {
		if !shared.IsValidation(err) {
			h.logger.Error("build "+name, slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func counterpartyID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.NewValidationError(key, "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func dateRange(w http.ResponseWriter, r *http.Request) (DateRange, bool) {
	var rng DateRange
	from, ok := parseDate(w, r, "startDate")
	if !ok {
		return rng, false
	}
	rng.From = from
	to, ok := parseDate(w, r, "endDate")
	if !ok {
		return rng, false
	}
	rng.To = to
	return rng, true
}

func parseDate(w http.ResponseWriter, r *http.Request, key string) (*time.Time, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		httpx.RespondError(w, shared.NewValidationError(key, "must be YYYY-MM-DD"))
		return nil, false
	}
	return &t, true
}
