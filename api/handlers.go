/*
handlers.go - HTTP handlers for the sales engine

REQUEST FLOW:
  1. Parse request (path/query/body)
  2. Resolve actor from context (set by Authenticator)
  3. Call domain logic (sales.Manager, audit.Recorder)
  4. Serialize response
  5. Map domain errors to transport status

ERROR MAPPING:
  not found            -> 404
  malformed input      -> 400
  business rule        -> 422
  access guard denial  -> 403
  version conflict     -> 409
  anything else        -> 500

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/sales-engine/audit"
	"github.com/warp/sales-engine/sales"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Sales  *sales.Manager
	Audit  *audit.Recorder
	Logger *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(manager *sales.Manager, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Sales: manager, Audit: recorder, Logger: logger}
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

// CreateSale handles POST /sales.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input := sales.CreateSaleInput{
		CustomerID:    req.CustomerID,
		Items:         toItemInputs(req.Items),
		PaymentMethod: sales.PaymentMethod(req.PaymentMethod),
		PaymentStatus: sales.PaymentStatus(req.PaymentStatus),
		Notes:         req.Notes,
	}
	if req.Discount != nil {
		input.Discount = sales.Set(*req.Discount)
	}

	sale, err := h.Sales.CreateSale(r.Context(), actor, input)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSaleResponse(sale))
}

// GetMySales handles GET /sales/my-sales.
func (h *Handler) GetMySales(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	page := parsePage(r, sales.DefaultPageSize)
	list, total, err := h.Sales.MySales(r.Context(), actor, page)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PageResponse[SaleResponse]{
		Content:       toSaleResponses(list),
		Page:          page.Number,
		Size:          page.Size,
		TotalElements: total,
	})
}

// GetAllSales handles GET /sales (admin only, enforced by the router).
func (h *Handler) GetAllSales(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r, sales.DefaultPageSize)
	list, total, err := h.Sales.AllSales(r.Context(), page)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PageResponse[SaleResponse]{
		Content:       toSaleResponses(list),
		Page:          page.Number,
		Size:          page.Size,
		TotalElements: total,
	})
}

// GetSale handles GET /sales/{id}.
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	sale, err := h.Sales.GetSaleByID(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSaleResponse(sale))
}

// UpdateSale handles PUT /sales/{id}.
func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	var req UpdateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sale, err := h.Sales.UpdateSale(r.Context(), actor, chi.URLParam(r, "id"), req.toPatch())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSaleResponse(sale))
}

// CancelSale handles DELETE /sales/{id}.
func (h *Handler) CancelSale(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	if err := h.Sales.CancelSale(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkPaymentAsPaid handles PATCH /sales/{id}/payment/mark-paid.
func (h *Handler) MarkPaymentAsPaid(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}

	sale, err := h.Sales.MarkPaymentAsPaid(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSaleResponse(sale))
}

// GetCustomerStatement handles
// GET /sales/customer/{customerId}/statement?startDate=&endDate=.
func (h *Handler) GetCustomerStatement(w http.ResponseWriter, r *http.Request) {
	from, ok := parseDateTime(r.URL.Query().Get("startDate"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid or missing startDate", nil)
		return
	}
	to, ok := parseDateTime(r.URL.Query().Get("endDate"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid or missing endDate", nil)
		return
	}

	list, err := h.Sales.CustomerSalesInPeriod(r.Context(), chi.URLParam(r, "customerId"), from, to)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSaleResponses(list))
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// GetEntityAuditTrail handles
// GET /api/audit-logs/entity/{entityType}/{entityId}: the full,
// unpaginated history of one entity, newest first.
func (h *Handler) GetEntityAuditTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Audit.EntityTrail(r.Context(),
		chi.URLParam(r, "entityType"), chi.URLParam(r, "entityId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load audit trail", err)
		return
	}

	writeJSON(w, http.StatusOK, toAuditResponses(entries))
}

// SearchAuditLogs serves every /api/audit-logs/search/* endpoint. The
// per-route required parameters are validated by requireParams in the
// router; the filter itself accepts any combination.
func (h *Handler) SearchAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		Action:     q.Get("action"),
		UserID:     q.Get("userId"),
	}
	if raw := q.Get("startDate"); raw != "" {
		from, ok := parseDateTime(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid startDate", nil)
			return
		}
		filter.From = from
	}
	if raw := q.Get("endDate"); raw != "" {
		to, ok := parseDateTime(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid endDate", nil)
			return
		}
		filter.To = to
	}

	page := parseAuditPage(r, audit.DefaultPageSize)
	entries, total, err := h.Audit.Search(r.Context(), filter, page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to search audit logs", err)
		return
	}

	writeJSON(w, http.StatusOK, PageResponse[AuditEntryResponse]{
		Content:       toAuditResponses(entries),
		Page:          page.Number,
		Size:          page.Size,
		TotalElements: total,
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case sales.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case sales.IsBadRequest(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case sales.IsBusinessRule(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
	case sales.IsUnauthorized(err):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case sales.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		h.Logger.Error("unhandled domain error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}

func parsePage(r *http.Request, defaultSize int) sales.Page {
	return sales.Page{
		Number: queryInt(r, "page", 0),
		Size:   queryInt(r, "size", defaultSize),
	}.Normalize(defaultSize)
}

func parseAuditPage(r *http.Request, defaultSize int) audit.Page {
	return audit.Page{
		Number: queryInt(r, "page", 0),
		Size:   queryInt(r, "size", defaultSize),
	}.Normalize(defaultSize)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// parseDateTime accepts RFC3339 and the zone-less ISO-8601 form
// (2006-01-02T15:04:05).
func parseDateTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
