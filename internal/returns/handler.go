package returns

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-retail/meridian/internal/platform/httpx"
	"github.com/meridian-retail/meridian/internal/shared"
)

// ReturnService defines the service contract used by the handler.
type ReturnService interface {
	GetSaleReturn(ctx context.Context, id int64) (SaleReturn, error)
	ListSaleReturns(ctx context.Context, filter ListFilter) ([]SaleReturn, shared.Pagination, error)
	CreateSaleReturn(ctx context.Context, input SaleReturnInput) (SaleReturn, error)
	UpdateSaleReturn(ctx context.Context, id int64, input SaleReturnInput) (SaleReturn, error)
	DeleteSaleReturn(ctx context.Context, id int64) error

	GetPurchaseReturn(ctx context.Context, id int64) (PurchaseReturn, error)
	ListPurchaseReturns(ctx context.Context, filter ListFilter) ([]PurchaseReturn, shared.Pagination, error)
	CreatePurchaseReturn(ctx context.Context, input PurchaseReturnInput) (PurchaseReturn, error)
	UpdatePurchaseReturn(ctx context.Context, id int64, input PurchaseReturnInput) (PurchaseReturn, error)
	DeletePurchaseReturn(ctx context.Context, id int64) error
}

// Handler manages sale-return and purchase-return endpoints.
type Handler struct {
	logger   *slog.Logger
	service  ReturnService
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service ReturnService) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountSaleReturnRoutes registers sale return routes.
func (h *Handler) MountSaleReturnRoutes(r chi.Router) {
	r.Get("/", h.listSaleReturns)
	r.Post("/", h.createSaleReturn)
	r.Get("/{id}", h.showSaleReturn)
	r.Put("/{id}", h.updateSaleReturn)
	r.Delete("/{id}", h.removeSaleReturn)
}

// MountPurchaseReturnRoutes registers purchase return routes.
func (h *Handler) MountPurchaseReturnRoutes(r chi.Router) {
	r.Get("/", h.listPurchaseReturns)
	r.Post("/", h.createPurchaseReturn)
	r.Get("/{id}", h.showPurchaseReturn)
	r.Put("/{id}", h.updatePurchaseReturn)
	r.Delete("/{id}", h.removePurchaseReturn)
}

func (h *Handler) listSaleReturns(w http.ResponseWriter, r *http.Request) {
	filter, ok := listFilter(w, r)
	if !ok {
		return
	}
	out, pagination, err := h.service.ListSaleReturns(r.Context(), filter)
	if err != nil {
		h.logger.Error("list sale returns", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": out, "pagination": pagination})
}

func (h *Handler) showSaleReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ret, err := h.service.GetSaleReturn(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ret)
}

func (h *Handler) createSaleReturn(w http.ResponseWriter, r *http.Request) {
	var input SaleReturnInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.RespondError(w, shared.NewValidationError("items", err.Error()))
		return
	}
	ret, err := h.service.CreateSaleReturn(r.Context(), input)
	if err != nil {
		h.logError("create sale return", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ret)
}

func (h *Handler) updateSaleReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var input SaleReturnInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.RespondError(w, shared.NewValidationError("items", err.Error()))
		return
	}
	ret, err := h.service.UpdateSaleReturn(r.Context(), id, input)
	if err != nil {
		h.logError("update sale return", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ret)
}

func (h *Handler) removeSaleReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteSaleReturn(r.Context(), id); err != nil {
		h.logError("delete sale return", err)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPurchaseReturns(w http.ResponseWriter, r *http.Request) {
	filter, ok := listFilter(w, r)
	if !ok {
		return
	}
	out, pagination, err := h.service.ListPurchaseReturns(r.Context(), filter)
	if err != nil {
		h.logger.Error("list purchase returns", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": out, "pagination": pagination})
}

func (h *Handler) showPurchaseReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ret, err := h.service.GetPurchaseReturn(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ret)
}

func (h *Handler) createPurchaseReturn(w http.ResponseWriter, r *http.Request) {
	var input PurchaseReturnInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.RespondError(w, shared.NewValidationError("items", err.Error()))
		return
	}
	ret, err := h.service.CreatePurchaseReturn(r.Context(), input)
	if err != nil {
		h.logError("create purchase return", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ret)
}

func (h *Handler) updatePurchaseReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var input PurchaseReturnInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.RespondError(w, shared.NewValidationError("items", err.Error()))
		return
	}
	ret, err := h.service.UpdatePurchaseReturn(r.Context(), id, input)
	if err != nil {
		h.logError("update purchase return", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ret)
}

func (h *Handler) removePurchaseReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePurchaseReturn(r.Context(), id); err != nil {
		h.logError("delete purchase return", err)
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logError(msg string, err error) {
	if shared.IsValidation(err) || shared.IsConflict(err) || shared.IsStock(err) {
		return
	}
	h.logger.Error(msg, slog.Any("error", err))
}

func listFilter(w http.ResponseWriter, r *http.Request) (ListFilter, bool) {
	filter := ListFilter{Search: r.URL.Query().Get("search")}
	from, ok := parseDate(w, r, "startDate")
	if !ok {
		return filter, false
	}
	filter.From = from
	to, ok := parseDate(w, r, "endDate")
	if !ok {
		return filter, false
	}
	filter.To = to
	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.PerPage, _ = strconv.Atoi(r.URL.Query().Get("perPage"))
	return filter, true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.NewValidationError("id", "must be a positive integer"))
		return 0, false
	}
	return id, true
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
