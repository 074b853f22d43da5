/*
manager.go - Sale transaction manager

PURPOSE:
  Orchestrates the four mutating operations on the sale aggregate
  (create, edit, cancel, settle payment) plus the read surface.
  Every mutation:
    1. Resolves referenced entities
    2. Runs the access guard (for per-sale operations)
    3. Validates invariants and the state transition
    4. Persists the aggregate atomically
    5. Records the audit trail (best-effort, see audit package)

LIFECYCLE:
  A sale is created PENDING when its payment has not settled and
  COMPLETED when it is paid at creation. Only PENDING sales can be
  edited. MarkPaymentAsPaid promotes a pending sale to COMPLETED.
  CancelSale moves any non-cancelled sale to CANCELLED; cancelling an
  already-cancelled sale is a no-op.

ACTOR:
  The acting user is an explicit parameter on every operation. The
  boundary layer resolves it once per request and passes it down; this
  package never reads ambient security state.

KNOWN GAP:
  Creating a sale does not decrement product stock. Inventory
  reconciliation is outside this manager's contract.

SEE ALSO:
  - access.go: owner-or-admin guard applied here
  - audit/recorder.go: audit write policy
  - store/sqlite: the atomic aggregate persistence
*/
package sales

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/sales-engine/audit"
)

// DefaultPageSize is the sales listing page size when none is requested.
const DefaultPageSize = 10

// Manager coordinates sale lifecycle operations over a Store and a
// Directory, recording every mutation through the audit Recorder.
type Manager struct {
	store     Store
	directory Directory
	audit     *audit.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewManager creates a Manager.
func NewManager(store Store, directory Directory, recorder *audit.Recorder, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:     store,
		directory: directory,
		audit:     recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateSaleInput is the full input for a new sale.
type CreateSaleInput struct {
	CustomerID    string
	Items         []ItemInput
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	Discount      Optional[decimal.Decimal]
	Notes         string
}

// =============================================================================
// CREATE
// =============================================================================

// CreateSale validates the input, resolves the customer and products,
// derives the amounts and persists the aggregate atomically. The actor
// becomes the sale's seller.
func (m *Manager) CreateSale(ctx context.Context, actor User, in CreateSaleInput) (*Sale, error) {
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}
	if !in.PaymentMethod.Valid() {
		return nil, &ValidationError{Field: "payment_method", Message: fmt.Sprintf("unknown method %q", in.PaymentMethod)}
	}
	if !in.PaymentStatus.Valid() {
		return nil, &ValidationError{Field: "payment_status", Message: fmt.Sprintf("unknown status %q", in.PaymentStatus)}
	}
	discount := decimal.Zero
	if d, ok := in.Discount.Get(); ok {
		if d.IsNegative() {
			return nil, &ValidationError{Field: "discount", Message: "must not be negative"}
		}
		discount = d
	}

	customer, err := m.directory.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	sale := &Sale{
		ID:        uuid.NewString(),
		SaleDate:  now,
		Discount:  discount,
		Status:    StatusPending,
		Notes:     in.Notes,
		Seller:    actor,
		Customer:  *customer,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}

	items, err := m.resolveItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	sale.Recalculate()

	if sale.FinalAmount.IsNegative() {
		return nil, ErrDiscountTooLarge
	}

	sale.Payment = Payment{
		ID:        uuid.NewString(),
		SaleID:    sale.ID,
		Method:    in.PaymentMethod,
		Status:    in.PaymentStatus,
		Amount:    sale.FinalAmount,
		CreatedAt: now,
	}
	if in.PaymentStatus.IsPaid() {
		paidAt := now
		sale.Payment.PaidAt = &paidAt
		sale.Status = StatusCompleted
	}

	if err := m.store.CreateSale(ctx, sale); err != nil {
		m.logger.Error("failed to persist sale", zap.String("sale_id", sale.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to save sale: %w", err)
	}

	m.audit.Record(ctx, audit.Change{
		EntityType: audit.EntitySale,
		EntityID:   sale.ID,
		Action:     audit.ActionCreate,
		NewValue:   snapshot(sale),
		ActorID:    actor.ID,
	})

	m.logger.Info("sale created",
		zap.String("sale_id", sale.ID),
		zap.String("seller_id", actor.ID),
		zap.String("customer_id", customer.ID),
		zap.String("final_amount", sale.FinalAmount.String()))
	return sale, nil
}

// =============================================================================
// UPDATE
// =============================================================================

// UpdateSale applies a partial update to a pending sale. Absent patch
// fields leave the corresponding attribute unchanged; item or discount
// changes re-derive the amounts under the creation formula.
func (m *Manager) UpdateSale(ctx context.Context, actor User, saleID string, patch SalePatch) (*Sale, error) {
	sale, err := m.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !CanAccess(actor, sale) {
		return nil, ErrUnauthorized
	}
	if !sale.Status.Editable() {
		return nil, ErrSaleNotEditable
	}

	oldValue := snapshot(sale)

	if items, ok := patch.Items.Get(); ok {
		if err := validateItems(items); err != nil {
			return nil, err
		}
		resolved, err := m.resolveItems(ctx, items)
		if err != nil {
			return nil, err
		}
		sale.Items = resolved
	}
	if d, ok := patch.Discount.Get(); ok {
		if d.IsNegative() {
			return nil, &ValidationError{Field: "discount", Message: "must not be negative"}
		}
		sale.Discount = d
	}
	if notes, ok := patch.Notes.Get(); ok {
		sale.Notes = notes
	}
	if method, ok := patch.PaymentMethod.Get(); ok {
		if !method.Valid() {
			return nil, &ValidationError{Field: "payment_method", Message: fmt.Sprintf("unknown method %q", method)}
		}
		sale.Payment.Method = method
	}

	sale.Recalculate()
	if sale.FinalAmount.IsNegative() {
		return nil, ErrDiscountTooLarge
	}
	// The payment has not settled (the sale is still pending), so its
	// amount tracks the re-derived final amount.
	sale.Payment.Amount = sale.FinalAmount
	sale.UpdatedAt = m.now()

	if err := m.store.SaveSale(ctx, sale); err != nil {
		m.logger.Error("failed to update sale", zap.String("sale_id", sale.ID), zap.Error(err))
		return nil, err
	}

	m.audit.Record(ctx, audit.Change{
		EntityType: audit.EntitySale,
		EntityID:   sale.ID,
		Action:     audit.ActionUpdate,
		OldValue:   oldValue,
		NewValue:   snapshot(sale),
		ActorID:    actor.ID,
	})

	m.logger.Info("sale updated", zap.String("sale_id", sale.ID), zap.String("user_id", actor.ID))
	return sale, nil
}

// =============================================================================
// CANCEL
// =============================================================================

// CancelSale moves the sale to CANCELLED. Items and payment are left
// untouched. Cancelling an already-cancelled sale is a no-op success:
// nothing is persisted and no audit entry is written.
func (m *Manager) CancelSale(ctx context.Context, actor User, saleID string) error {
	sale, err := m.store.GetSale(ctx, saleID)
	if err != nil {
		return err
	}
	if !CanAccess(actor, sale) {
		return ErrUnauthorized
	}
	if sale.Status == StatusCancelled {
		return nil
	}

	previous := sale.Status
	sale.Status = StatusCancelled
	sale.UpdatedAt = m.now()

	if err := m.store.SaveSale(ctx, sale); err != nil {
		m.logger.Error("failed to cancel sale", zap.String("sale_id", sale.ID), zap.Error(err))
		return err
	}

	m.audit.Record(ctx, audit.Change{
		EntityType: audit.EntitySale,
		EntityID:   sale.ID,
		Action:     audit.ActionCancel,
		OldValue:   string(previous),
		NewValue:   string(StatusCancelled),
		ActorID:    actor.ID,
	})

	m.logger.Info("sale cancelled", zap.String("sale_id", sale.ID), zap.String("user_id", actor.ID))
	return nil
}

// =============================================================================
// SETTLE PAYMENT
// =============================================================================

// MarkPaymentAsPaid settles the sale's payment. Calling it on an
// already-paid payment re-stamps the payment date; repeated calls are
// idempotent under that policy. A pending sale is promoted to COMPLETED.
func (m *Manager) MarkPaymentAsPaid(ctx context.Context, actor User, saleID string) (*Sale, error) {
	sale, err := m.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !CanAccess(actor, sale) {
		return nil, ErrUnauthorized
	}

	previous := sale.Payment.Status
	paidAt := m.now()
	sale.Payment.Status = PaymentPaid
	sale.Payment.PaidAt = &paidAt
	if sale.Status == StatusPending {
		sale.Status = StatusCompleted
	}
	sale.UpdatedAt = paidAt

	if err := m.store.SaveSale(ctx, sale); err != nil {
		m.logger.Error("failed to settle payment", zap.String("sale_id", sale.ID), zap.Error(err))
		return nil, err
	}

	m.audit.Record(ctx, audit.Change{
		EntityType: audit.EntityPayment,
		EntityID:   sale.Payment.ID,
		Action:     audit.ActionUpdate,
		OldValue:   string(previous),
		NewValue:   string(PaymentPaid),
		ActorID:    actor.ID,
	})
	m.audit.Record(ctx, audit.Change{
		EntityType: audit.EntitySale,
		EntityID:   sale.ID,
		Action:     audit.ActionPaymentReceived,
		NewValue:   "Payment received at " + paidAt.Format(time.RFC3339),
		ActorID:    actor.ID,
	})

	m.logger.Info("payment settled", zap.String("sale_id", sale.ID), zap.String("user_id", actor.ID))
	return sale, nil
}

// =============================================================================
// READS
// =============================================================================

// GetSaleByID loads one sale, enforcing the access guard.
func (m *Manager) GetSaleByID(ctx context.Context, actor User, saleID string) (*Sale, error) {
	sale, err := m.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !CanAccess(actor, sale) {
		return nil, ErrUnauthorized
	}
	return sale, nil
}

// MySales returns the actor's own sales, newest first.
func (m *Manager) MySales(ctx context.Context, actor User, page Page) ([]*Sale, int, error) {
	return m.store.ListSalesBySeller(ctx, actor.ID, page.Normalize(DefaultPageSize))
}

// AllSales returns every sale, newest first. The boundary restricts
// this to admins.
func (m *Manager) AllSales(ctx context.Context, page Page) ([]*Sale, int, error) {
	return m.store.ListSales(ctx, page.Normalize(DefaultPageSize))
}

// CustomerSalesInPeriod returns the customer's sales with both period
// endpoints inclusive, newest first.
func (m *Manager) CustomerSalesInPeriod(ctx context.Context, customerID string, from, to time.Time) ([]*Sale, error) {
	if to.Before(from) {
		return nil, &ValidationError{Field: "period", Message: "end date before start date"}
	}
	return m.store.ListCustomerSalesInPeriod(ctx, customerID, from, to)
}

// =============================================================================
// HELPERS
// =============================================================================

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	for i, item := range items {
		if item.ProductID == "" {
			return &ValidationError{Field: fmt.Sprintf("items[%d].product_id", i), Message: "must not be empty"}
		}
		if item.Quantity < 1 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be at least 1"}
		}
		if item.UnitPrice.IsNegative() {
			return &ValidationError{Field: fmt.Sprintf("items[%d].unit_price", i), Message: "must not be negative"}
		}
	}
	return nil
}

// resolveItems checks every referenced product exists and is active,
// capturing the submitted unit price (not the catalog price).
func (m *Manager) resolveItems(ctx context.Context, items []ItemInput) ([]SaleItem, error) {
	resolved := make([]SaleItem, 0, len(items))
	for _, in := range items {
		product, err := m.directory.GetActiveProduct(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, SaleItem{
			ID:          uuid.NewString(),
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
		})
	}
	return resolved, nil
}

// snapshot serializes the sale for audit old/new values. Serialization
// failures degrade to an empty snapshot rather than failing the
// business operation.
func snapshot(s *Sale) string {
	b, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(b)
}
