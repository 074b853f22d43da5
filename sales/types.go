/*
Package sales contains the sale aggregate and the transaction manager
that governs its lifecycle.

KEY CONCEPTS IN THIS FILE (types.go):
  - Sale: the aggregate root linking a seller, a customer, line items
    and exactly one payment
  - SaleItem: one product line, pricing locked at sale time
  - Payment: the settlement record for the sale's final amount
  - Status/method/role enums mirroring the persisted vocabulary

DESIGN PRINCIPLES:
  1. Aggregate boundary: items and payment are owned by the sale and
     are only ever persisted/mutated through root-level operations
  2. Precision: uses decimal.Decimal for all money, never float64
  3. Explicit actor: nothing in this package reads ambient
     "current user" state; the acting user is always a parameter
  4. Optimistic concurrency: Sale.Version is checked at persist time

SEE ALSO:
  - manager.go: lifecycle operations (create, edit, cancel, settle)
  - access.go: owner-or-admin visibility predicate
  - store.go: persistence interfaces implemented by store/sqlite
*/
package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS VOCABULARY
// =============================================================================

// SaleStatus is the lifecycle state of a sale.
//
// PENDING is the only editable state: the sale exists but its payment has
// not settled yet. COMPLETED and CANCELLED are terminal.
type SaleStatus string

const (
	StatusPending   SaleStatus = "PENDING"
	StatusCompleted SaleStatus = "COMPLETED"
	StatusCancelled SaleStatus = "CANCELLED"
)

// Editable reports whether the sale may still be modified.
func (s SaleStatus) Editable() bool { return s == StatusPending }

// Active reports whether the sale still counts toward totals.
func (s SaleStatus) Active() bool { return s != StatusCancelled }

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	MethodCash       PaymentMethod = "CASH"
	MethodPix        PaymentMethod = "PIX"
	MethodDebitCard  PaymentMethod = "DEBIT_CARD"
	MethodCreditCard PaymentMethod = "CREDIT_CARD"
)

// Valid reports whether m is one of the known methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodPix, MethodDebitCard, MethodCreditCard:
		return true
	}
	return false
}

// IsInstant reports whether the method settles at the point of sale.
// Cash and debit settle immediately; pix and credit may clear later.
func (m PaymentMethod) IsInstant() bool {
	return m == MethodCash || m == MethodDebitCard
}

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// Valid reports whether s is one of the known statuses.
func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPaid
}

// IsPaid reports whether the payment has settled.
func (s PaymentStatus) IsPaid() bool { return s == PaymentPaid }

// Role is the authorization role of a user.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleSeller  Role = "SELLER"
	RoleManager Role = "MANAGER"
)

// =============================================================================
// REFERENCED ENTITIES
// =============================================================================

// User is the acting principal as consumed by this package: identity,
// role and active flag. User administration lives elsewhere.
type User struct {
	ID     string
	Name   string
	Email  string
	Role   Role
	Active bool
}

// Customer is the buyer reference attached to a sale.
type Customer struct {
	ID    string
	Name  string
	Email string
}

// Product is the catalog reference resolved when a line item is added.
// Only active products may be sold; Price is the current catalog price,
// not necessarily the price captured on the item.
type Product struct {
	ID     string
	Name   string
	Price  decimal.Decimal
	Active bool
}

// =============================================================================
// SALE AGGREGATE
// =============================================================================

// SaleItem is one product line within a sale. The unit price is captured
// at sale time and never follows later catalog price changes.
type SaleItem struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// TotalPrice returns quantity x unit price.
func (i SaleItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Payment is the single settlement record owned by a sale. It is created
// atomically with the sale and its amount equals the sale's final amount.
type Payment struct {
	ID        string
	SaleID    string
	Method    PaymentMethod
	Status    PaymentStatus
	Amount    decimal.Decimal
	PaidAt    *time.Time // set exactly when Status becomes PAID
	CreatedAt time.Time
}

// Sale is the aggregate root. Items and Payment are exclusively owned:
// they are written in the same store transaction as the sale row and are
// never reached into independently.
type Sale struct {
	ID          string
	SaleDate    time.Time
	Items       []SaleItem // insertion order is the relevant order
	TotalAmount decimal.Decimal
	Discount    decimal.Decimal
	FinalAmount decimal.Decimal
	Status      SaleStatus
	Notes       string
	Seller      User
	Customer    Customer
	Payment     Payment
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Version guards against lost updates: the store refuses to persist
	// an aggregate whose version no longer matches the stored row.
	Version int
}

// Recalculate re-derives TotalAmount and FinalAmount from the current
// items and discount. Callers must invoke this after any item or
// discount change; the invariant is
//
//	TotalAmount = sum(item.Quantity x item.UnitPrice)
//	FinalAmount = TotalAmount - Discount
func (s *Sale) Recalculate() {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.TotalPrice())
	}
	s.TotalAmount = total
	s.FinalAmount = total.Sub(s.Discount)
}
