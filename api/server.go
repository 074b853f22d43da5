/*
server.go - HTTP router and middleware configuration

MIDDLEWARE STACK:
  1. Logger:      request logging
  2. Recoverer:   panic recovery (500 instead of crash)
  3. RequestID:   unique ID per request for tracing
  4. CORS:        cross-origin requests for frontend
  5. RequestMeta: client IP + user agent for the audit trail
  6. Auth:        bearer-token actor resolution (per route group)

ROUTE GROUPS:
  /sales/*           sale lifecycle (authenticated)
  /api/audit-logs/*  audit queries (ADMIN or MANAGER)
  /health            liveness probe (public)

SEE ALSO:
  - handlers.go: handler implementations
  - auth.go: Authenticator, RequireRoles, RequestMeta
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/sales-engine/sales"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, auth *Authenticator) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(RequestMeta)

	r.Get("/health", h.Health)

	// Sale routes
	r.Route("/sales", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Post("/", h.CreateSale)
		r.Get("/my-sales", h.GetMySales)
		r.With(RequireRoles(sales.RoleAdmin)).Get("/", h.GetAllSales)
		r.Get("/{id}", h.GetSale)
		r.Put("/{id}", h.UpdateSale)
		r.Delete("/{id}", h.CancelSale)
		r.Patch("/{id}/payment/mark-paid", h.MarkPaymentAsPaid)
		r.Get("/customer/{customerId}/statement", h.GetCustomerStatement)
	})

	// Audit routes
	r.Route("/api/audit-logs", func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Use(RequireRoles(sales.RoleAdmin, sales.RoleManager))

		r.Get("/entity/{entityType}/{entityId}", h.GetEntityAuditTrail)

		r.Route("/search", func(r chi.Router) {
			r.With(requireParams("entityType")).Get("/entity", h.SearchAuditLogs)
			r.With(requireParams("entityType", "entityId")).Get("/entity-details", h.SearchAuditLogs)
			r.With(requireParams("action")).Get("/action", h.SearchAuditLogs)
			r.With(requireParams("userId")).Get("/user", h.SearchAuditLogs)
			r.With(requireParams("userId", "action")).Get("/user-action", h.SearchAuditLogs)
			r.With(requireParams("startDate", "endDate")).Get("/time-period", h.SearchAuditLogs)
			r.With(requireParams("entityType", "startDate", "endDate")).Get("/entity-time", h.SearchAuditLogs)
			r.With(requireParams("userId", "startDate", "endDate")).Get("/user-time", h.SearchAuditLogs)
			r.With(requireParams("action", "startDate", "endDate")).Get("/action-time", h.SearchAuditLogs)
			r.Get("/advanced", h.SearchAuditLogs)
		})
	})

	return r
}

// requireParams rejects requests missing any of the named query
// parameters. The search endpoints differ only in which filters are
// mandatory.
func requireParams(names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			for _, name := range names {
				if q.Get(name) == "" {
					writeError(w, http.StatusBadRequest, "Missing required parameter: "+name, nil)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
