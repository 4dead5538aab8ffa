package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-retail/meridian/internal/catalog/customers"
	"github.com/meridian-retail/meridian/internal/catalog/products"
	"github.com/meridian-retail/meridian/internal/catalog/vendors"
	"github.com/meridian-retail/meridian/internal/expenses"
	"github.com/meridian-retail/meridian/internal/observability"
	"github.com/meridian-retail/meridian/internal/procurement"
	"github.com/meridian-retail/meridian/internal/reports"
	"github.com/meridian-retail/meridian/internal/returns"
	"github.com/meridian-retail/meridian/internal/sales"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SalesHandler     *sales.Handler
	PurchaseHandler  *procurement.Handler
	ReturnsHandler   *returns.Handler
	ExpensesHandler  *expenses.Handler
	ReportsHandler   *reports.Handler
	ProductsHandler  *products.Handler
	CustomersHandler *customers.Handler
	VendorsHandler   *vendors.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/sale", params.SalesHandler.MountRoutes)
	r.Route("/purchase", params.PurchaseHandler.MountRoutes)
	r.Route("/sales-returns", params.ReturnsHandler.MountSaleReturnRoutes)
	r.Route("/purchase-returns", params.ReturnsHandler.MountPurchaseReturnRoutes)
	r.Route("/expenses", params.ExpensesHandler.MountRoutes)
	r.Route("/reports", params.ReportsHandler.MountRoutes)
	r.Route("/products", params.ProductsHandler.MountRoutes)
	r.Route("/customers", params.CustomersHandler.MountRoutes)
	r.Route("/vendors", params.VendorsHandler.MountRoutes)

	return r
}
