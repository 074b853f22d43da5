/*
store.go - Persistence interfaces for the sales domain

The domain defines the interfaces; store/sqlite implements them for
production and store/memory for tests. The aggregate contract:

  CreateSale and SaveSale persist the sale row, its items and its
  payment in ONE storage transaction. Partial writes across the three
  must never be observable.

  SaveSale checks Sale.Version against the stored row and returns
  ErrVersionConflict on mismatch; on success it bumps the version both
  in the row and on the passed aggregate.
*/
package sales

import (
	"context"
	"time"
)

// Page is a zero-based page request.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page to sane values, applying defaultSize when
// the size is unset or non-positive.
func (p Page) Normalize(defaultSize int) Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	return p
}

// Offset returns the row offset for this page.
func (p Page) Offset() int { return p.Number * p.Size }

// Store persists sale aggregates.
type Store interface {
	// CreateSale inserts a new aggregate (sale + items + payment) atomically.
	CreateSale(ctx context.Context, sale *Sale) error

	// SaveSale rewrites an existing aggregate atomically, guarded by
	// the optimistic version check.
	SaveSale(ctx context.Context, sale *Sale) error

	// GetSale loads a fully-resolved aggregate, including seller and
	// customer references. Returns ErrSaleNotFound if absent.
	GetSale(ctx context.Context, id string) (*Sale, error)

	// ListSalesBySeller returns the seller's sales, newest sale date
	// first, plus the total count across all pages.
	ListSalesBySeller(ctx context.Context, sellerID string, page Page) ([]*Sale, int, error)

	// ListSales returns all sales, newest sale date first, plus the
	// total count across all pages.
	ListSales(ctx context.Context, page Page) ([]*Sale, int, error)

	// ListCustomerSalesInPeriod returns the customer's sales with
	// from <= saleDate <= to (both endpoints inclusive), newest first.
	ListCustomerSalesInPeriod(ctx context.Context, customerID string, from, to time.Time) ([]*Sale, error)
}

// Directory resolves the entities a sale references. User, customer and
// product administration is a separate concern; the manager only reads.
type Directory interface {
	// GetUser returns the user or ErrUserNotFound.
	GetUser(ctx context.Context, id string) (*User, error)

	// GetCustomer returns the customer or ErrCustomerNotFound.
	GetCustomer(ctx context.Context, id string) (*Customer, error)

	// GetActiveProduct returns the product only if it exists AND is
	// active; otherwise ErrProductNotFound.
	GetActiveProduct(ctx context.Context, id string) (*Product, error)
}
