package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/sales-engine/api"
	"github.com/warp/sales-engine/audit"
	"github.com/warp/sales-engine/sales"
	"github.com/warp/sales-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testSecret = []byte("handlers-test-secret")

type testEnv struct {
	server *httptest.Server
	store  *sqlite.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	users := []sales.User{
		{ID: "seller-1", Name: "Ana", Email: "ana@shop.test", Role: sales.RoleSeller, Active: true},
		{ID: "seller-2", Name: "Bea", Email: "bea@shop.test", Role: sales.RoleSeller, Active: true},
		{ID: "admin-1", Name: "Root", Email: "root@shop.test", Role: sales.RoleAdmin, Active: true},
		{ID: "mgr-1", Name: "Mia", Email: "mia@shop.test", Role: sales.RoleManager, Active: true},
		{ID: "gone-1", Name: "Gone", Email: "gone@shop.test", Role: sales.RoleSeller, Active: false},
	}
	for _, u := range users {
		require.NoError(t, store.SaveUser(ctx, u))
	}
	require.NoError(t, store.SaveCustomer(ctx, sales.Customer{
		ID: "cust-1", Name: "Carla", Email: "carla@mail.test",
	}))
	require.NoError(t, store.SaveProduct(ctx, sales.Product{
		ID: "prod-1", Name: "Keyboard", Price: dec(t, "10.00"), Active: true,
	}))

	recorder := audit.NewRecorder(store, nil)
	manager := sales.NewManager(store, store, recorder, nil)
	handler := api.NewHandler(manager, recorder, nil)
	auth := &api.Authenticator{Secret: testSecret, Directory: store}

	server := httptest.NewServer(api.NewRouter(handler, auth))
	t.Cleanup(server.Close)

	return &testEnv{server: server, store: store}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func token(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

// do sends a request with an optional bearer token and JSON body.
func (env *testEnv) do(t *testing.T, method, path, userID string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, env.server.URL+path, reader)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createRequest() api.CreateSaleRequest {
	return api.CreateSaleRequest{
		CustomerID: "cust-1",
		Items: []api.SaleItemRequest{
			{ProductID: "prod-1", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		},
		PaymentMethod: string(sales.MethodPix),
		PaymentStatus: string(sales.PaymentPending),
		Notes:         "counter sale",
	}
}

func (env *testEnv) createSale(t *testing.T, userID string) api.SaleResponse {
	t.Helper()
	resp := env.do(t, http.MethodPost, "/sales", userID, createRequest())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[api.SaleResponse](t, resp)
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestSales_RejectsMissingToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/sales/my-sales", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSales_RejectsDeactivatedUser(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/sales/my-sales", "gone-1", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSales_RejectsTokenSignedWithWrongKey(t *testing.T) {
	env := newTestEnv(t)

	claims := jwt.RegisteredClaims{Subject: "seller-1"}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/sales/my-sales", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+forged)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealth_IsPublic(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// SALE LIFECYCLE
// =============================================================================

func TestCreateSale_ReturnsDerivedAmounts(t *testing.T) {
	env := newTestEnv(t)

	req := createRequest()
	discount := decimal.RequireFromString("5.00")
	req.Discount = &discount

	resp := env.do(t, http.MethodPost, "/sales", "seller-1", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	sale := decode[api.SaleResponse](t, resp)
	assert.NotEmpty(t, sale.ID)
	assert.Equal(t, "20", sale.TotalAmount)
	assert.Equal(t, "5", sale.Discount)
	assert.Equal(t, "15", sale.FinalAmount)
	assert.Equal(t, string(sales.StatusPending), sale.Status)
	assert.Equal(t, "Ana", sale.Seller.Name)
	assert.Equal(t, "Carla", sale.Customer.Name)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, "20", sale.Items[0].TotalPrice)
	assert.Nil(t, sale.PaymentDate)
}

func TestCreateSale_EmptyItems_BadRequest(t *testing.T) {
	env := newTestEnv(t)

	req := createRequest()
	req.Items = nil

	resp := env.do(t, http.MethodPost, "/sales", "seller-1", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSale_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	sale := env.createSale(t, "seller-1")

	resp := env.do(t, http.MethodGet, "/sales/"+sale.ID, "seller-2", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/sales/"+sale.ID, "seller-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/sales/"+sale.ID, "admin-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetSale_Unknown_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/sales/missing", "seller-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetAllSales_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	env.createSale(t, "seller-1")
	env.createSale(t, "seller-2")

	resp := env.do(t, http.MethodGet, "/sales", "seller-1", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/sales", "admin-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	page := decode[api.PageResponse[api.SaleResponse]](t, resp)
	assert.Equal(t, 2, page.TotalElements)
	assert.Len(t, page.Content, 2)
}

func TestGetMySales_ScopedToActor(t *testing.T) {
	env := newTestEnv(t)
	mine := env.createSale(t, "seller-1")
	env.createSale(t, "seller-2")

	resp := env.do(t, http.MethodGet, "/sales/my-sales", "seller-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	page := decode[api.PageResponse[api.SaleResponse]](t, resp)
	assert.Equal(t, 1, page.TotalElements)
	require.Len(t, page.Content, 1)
	assert.Equal(t, mine.ID, page.Content[0].ID)
}

func TestUpdateSale_RederivesAmounts(t *testing.T) {
	env := newTestEnv(t)
	sale := env.createSale(t, "seller-1")

	items := []api.SaleItemRequest{
		{ProductID: "prod-1", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
	}
	discount := decimal.RequireFromString("2.50")
	resp := env.do(t, http.MethodPut, "/sales/"+sale.ID, "seller-1", api.UpdateSaleRequest{
		Items:    &items,
		Discount: &discount,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decode[api.SaleResponse](t, resp)
	assert.Equal(t, "10", updated.TotalAmount)
	assert.Equal(t, "7.5", updated.FinalAmount)
	assert.Equal(t, "counter sale", updated.Notes) // absent field untouched
}

func TestUpdateSale_NonPending_Unprocessable(t *testing.T) {
	env := newTestEnv(t)
	sale := env.createSale(t, "seller-1")

	resp := env.do(t, http.MethodDelete, "/sales/"+sale.ID, "seller-1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	notes := "too late"
	resp = env.do(t, http.MethodPut, "/sales/"+sale.ID, "seller-1", api.UpdateSaleRequest{Notes: &notes})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCancelSale_NoContentAndStatusChanges(t *testing.T) {
	env := newTestEnv(t)
	sale := env.createSale(t, "seller-1")

	resp := env.do(t, http.MethodDelete, "/sales/"+sale.ID, "seller-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/sales/"+sale.ID, "seller-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	loaded := decode[api.SaleResponse](t, resp)
	assert.Equal(t, string(sales.StatusCancelled), loaded.Status)
}

func TestMarkPaymentAsPaid_SettlesSale(t *testing.T) {
	env := newTestEnv(t)
	sale := env.createSale(t, "seller-1")

	resp := env.do(t, http.MethodPatch, "/sales/"+sale.ID+"/payment/mark-paid", "seller-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	paid := decode[api.SaleResponse](t, resp)
	assert.Equal(t, string(sales.PaymentPaid), paid.PaymentStatus)
	assert.Equal(t, string(sales.StatusCompleted), paid.Status)
	require.NotNil(t, paid.PaymentDate)
}

func TestCustomerStatement_RequiresDateRange(t *testing.T) {
	env := newTestEnv(t)
	sale := env.createSale(t, "seller-1")

	resp := env.do(t, http.MethodGet, "/sales/customer/cust-1/statement", "seller-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	start := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	end := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	path := fmt.Sprintf("/sales/customer/cust-1/statement?startDate=%s&endDate=%s", start, end)

	resp = env.do(t, http.MethodGet, path, "seller-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	statement := decode[[]api.SaleResponse](t, resp)
	require.Len(t, statement, 1)
	assert.Equal(t, sale.ID, statement[0].ID)
}

// =============================================================================
// AUDIT ENDPOINTS
// =============================================================================

func TestAuditTrail_RecordsLifecycleWithProvenance(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/sales", mustJSON(t, createRequest()))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token(t, "seller-1"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("User-Agent", "pos-terminal/2.1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	sale := decode[api.SaleResponse](t, resp)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	cancel := env.do(t, http.MethodDelete, "/sales/"+sale.ID, "seller-1", nil)
	require.Equal(t, http.StatusNoContent, cancel.StatusCode)

	trailResp := env.do(t, http.MethodGet, "/api/audit-logs/entity/SALE/"+sale.ID, "admin-1", nil)
	require.Equal(t, http.StatusOK, trailResp.StatusCode)

	trail := decode[[]api.AuditEntryResponse](t, trailResp)
	require.Len(t, trail, 2)
	assert.Equal(t, audit.ActionCancel, trail[0].Action) // newest first
	assert.Equal(t, audit.ActionCreate, trail[1].Action)
	assert.Equal(t, "seller-1", trail[1].UserID)
	assert.Equal(t, "203.0.113.7", trail[1].IPAddress)
	assert.Equal(t, "pos-terminal/2.1", trail[1].UserAgent)
	assert.NotEmpty(t, trail[1].NewValue)
}

func TestAuditEndpoints_SellerForbidden(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/audit-logs/search/advanced", "seller-1", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/audit-logs/entity/SALE/x", "seller-1", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuditSearch_ManagerAllowed(t *testing.T) {
	env := newTestEnv(t)
	env.createSale(t, "seller-1")

	resp := env.do(t, http.MethodGet, "/api/audit-logs/search/user?userId=seller-1", "mgr-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	page := decode[api.PageResponse[api.AuditEntryResponse]](t, resp)
	assert.Equal(t, 1, page.TotalElements)
	require.Len(t, page.Content, 1)
	assert.Equal(t, audit.ActionCreate, page.Content[0].Action)
}

func TestAuditSearch_MissingRequiredParam_BadRequest(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/audit-logs/search/user", "admin-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/audit-logs/search/entity-details?entityType=SALE", "admin-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuditSearch_AdvancedCombinesFilters(t *testing.T) {
	env := newTestEnv(t)
	sale := env.createSale(t, "seller-1")
	env.createSale(t, "seller-2")

	path := "/api/audit-logs/search/advanced?entityType=SALE&userId=seller-1&action=" + audit.ActionCreate
	resp := env.do(t, http.MethodGet, path, "admin-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	page := decode[api.PageResponse[api.AuditEntryResponse]](t, resp)
	assert.Equal(t, 1, page.TotalElements)
	require.Len(t, page.Content, 1)
	assert.Equal(t, sale.ID, page.Content[0].EntityID)
}

func mustJSON(t *testing.T, v any) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}
