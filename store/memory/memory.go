// Package memory provides in-memory store implementations for tests
// and local development. Behavior mirrors store/sqlite, including the
// optimistic version check and newest-first ordering.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/sales-engine/audit"
	"github.com/warp/sales-engine/sales"
)

// =============================================================================
// SALES STORE
// =============================================================================

// SaleStore is an in-memory sales.Store.
type SaleStore struct {
	mu    sync.RWMutex
	sales map[string]*sales.Sale
	seq   map[string]int // insertion order, tiebreak for equal sale dates
	next  int
}

// NewSaleStore creates an empty SaleStore.
func NewSaleStore() *SaleStore {
	return &SaleStore{
		sales: make(map[string]*sales.Sale),
		seq:   make(map[string]int),
	}
}

func (s *SaleStore) CreateSale(_ context.Context, sale *sales.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sales[sale.ID] = cloneSale(sale)
	s.seq[sale.ID] = s.next
	s.next++
	return nil
}

func (s *SaleStore) SaveSale(_ context.Context, sale *sales.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sales[sale.ID]
	if !ok {
		return sales.ErrSaleNotFound
	}
	if stored.Version != sale.Version {
		return sales.ErrVersionConflict
	}
	sale.Version++
	s.sales[sale.ID] = cloneSale(sale)
	return nil
}

func (s *SaleStore) GetSale(_ context.Context, id string) (*sales.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, sales.ErrSaleNotFound
	}
	return cloneSale(sale), nil
}

func (s *SaleStore) ListSalesBySeller(_ context.Context, sellerID string, page sales.Page) ([]*sales.Sale, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filter(func(sale *sales.Sale) bool { return sale.Seller.ID == sellerID })
	return paginate(matched, page)
}

func (s *SaleStore) ListSales(_ context.Context, page sales.Page) ([]*sales.Sale, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filter(func(*sales.Sale) bool { return true })
	return paginate(matched, page)
}

func (s *SaleStore) ListCustomerSalesInPeriod(_ context.Context, customerID string, from, to time.Time) ([]*sales.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filter(func(sale *sales.Sale) bool {
		return sale.Customer.ID == customerID &&
			!sale.SaleDate.Before(from) && !sale.SaleDate.After(to)
	})
	return matched, nil
}

// filter returns deep copies of matching sales, newest sale date first.
func (s *SaleStore) filter(keep func(*sales.Sale) bool) []*sales.Sale {
	var matched []*sales.Sale
	for _, sale := range s.sales {
		if keep(sale) {
			matched = append(matched, cloneSale(sale))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].SaleDate.Equal(matched[j].SaleDate) {
			return matched[i].SaleDate.After(matched[j].SaleDate)
		}
		return s.seq[matched[i].ID] > s.seq[matched[j].ID]
	})
	return matched
}

func paginate(all []*sales.Sale, page sales.Page) ([]*sales.Sale, int, error) {
	total := len(all)
	start := page.Offset()
	if start >= total {
		return []*sales.Sale{}, total, nil
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func cloneSale(s *sales.Sale) *sales.Sale {
	out := *s
	out.Items = make([]sales.SaleItem, len(s.Items))
	copy(out.Items, s.Items)
	if s.Payment.PaidAt != nil {
		paidAt := *s.Payment.PaidAt
		out.Payment.PaidAt = &paidAt
	}
	return &out
}

// =============================================================================
// DIRECTORY
// =============================================================================

// Directory is an in-memory sales.Directory, writable for test setup.
type Directory struct {
	mu        sync.RWMutex
	users     map[string]sales.User
	customers map[string]sales.Customer
	products  map[string]sales.Product
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		users:     make(map[string]sales.User),
		customers: make(map[string]sales.Customer),
		products:  make(map[string]sales.Product),
	}
}

func (d *Directory) PutUser(u sales.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *Directory) PutCustomer(c sales.Customer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.customers[c.ID] = c
}

func (d *Directory) PutProduct(p sales.Product) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.products[p.ID] = p
}

func (d *Directory) GetUser(_ context.Context, id string) (*sales.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, sales.ErrUserNotFound
	}
	return &u, nil
}

func (d *Directory) GetCustomer(_ context.Context, id string) (*sales.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.customers[id]
	if !ok {
		return nil, sales.ErrCustomerNotFound
	}
	return &c, nil
}

func (d *Directory) GetActiveProduct(_ context.Context, id string) (*sales.Product, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.products[id]
	if !ok || !p.Active {
		return nil, sales.ErrProductNotFound
	}
	return &p, nil
}

// =============================================================================
// AUDIT STORE
// =============================================================================

// AuditStore is an in-memory audit.Store. Append-only.
type AuditStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

// NewAuditStore creates an empty AuditStore.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (a *AuditStore) Append(_ context.Context, e audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *AuditStore) EntityTrail(_ context.Context, entityType, entityID string) ([]audit.Entry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	matched := a.filterNewestFirst(func(e audit.Entry) bool {
		return e.EntityType == entityType && e.EntityID == entityID
	})
	return matched, nil
}

func (a *AuditStore) Search(_ context.Context, f audit.Filter, page audit.Page) ([]audit.Entry, int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	matched := a.filterNewestFirst(func(e audit.Entry) bool {
		if f.EntityType != "" && e.EntityType != f.EntityType {
			return false
		}
		if f.EntityID != "" && e.EntityID != f.EntityID {
			return false
		}
		if f.Action != "" && e.Action != f.Action {
			return false
		}
		if f.UserID != "" && e.UserID != f.UserID {
			return false
		}
		return !e.Timestamp.Before(f.From) && !e.Timestamp.After(f.To)
	})

	total := len(matched)
	start := page.Offset()
	if start >= total {
		return []audit.Entry{}, total, nil
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// filterNewestFirst returns matching entries ordered newest first;
// entries with equal timestamps keep reverse insertion order.
func (a *AuditStore) filterNewestFirst(keep func(audit.Entry) bool) []audit.Entry {
	var matched []audit.Entry
	for i := len(a.entries) - 1; i >= 0; i-- {
		if keep(a.entries[i]) {
			matched = append(matched, a.entries[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return matched
}
