/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements sales.Store, sales.Directory and audit.Store using SQLite.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

AGGREGATE ATOMICITY:
  CreateSale and SaveSale write the sale row, its items and its payment
  inside ONE database transaction. Either all rows exist or none do;
  partial aggregates are never observable.

OPTIMISTIC CONCURRENCY:
  SaveSale updates the sale row WHERE version matches. Zero affected
  rows on an existing sale means a concurrent writer got there first
  and the call fails with sales.ErrVersionConflict.

APPEND-ONLY ENFORCEMENT:
  The audit_logs table has no UPDATE or DELETE statements anywhere in
  this package. Entries are inserted once and only ever read.

KEY TABLES:
  sales, sale_items, payments: the sale aggregate
  audit_logs:                  immutable audit trail
  users, customers, products:  reference records the manager resolves

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better
  concurrency: multiple readers don't block and crash recovery is
  cleaner. Foreign keys are switched on explicitly.

USAGE:
  store, err := sqlite.New("./data/sales.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - sales/store.go: interface contracts
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/sales-engine/audit"
	"github.com/warp/sales-engine/sales"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time, and a :memory: database exists
	// per connection. A single pooled connection covers both.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Reference records (administered elsewhere, resolved here)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		role TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	-- Sale aggregate
	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		sale_date TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		discount TEXT NOT NULL,
		final_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		seller_id TEXT NOT NULL REFERENCES users(id),
		customer_id TEXT NOT NULL REFERENCES customers(id),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS sale_items (
		id TEXT PRIMARY KEY,
		sale_id TEXT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL REFERENCES products(id),
		product_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		sale_id TEXT NOT NULL UNIQUE REFERENCES sales(id) ON DELETE CASCADE,
		payment_method TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sales_seller
		ON sales(seller_id, sale_date DESC);
	CREATE INDEX IF NOT EXISTS idx_sales_customer_date
		ON sales(customer_id, sale_date DESC);
	CREATE INDEX IF NOT EXISTS idx_sales_date
		ON sales(sale_date DESC);
	CREATE INDEX IF NOT EXISTS idx_sale_items_sale
		ON sale_items(sale_id, position);

	-- Audit trail (append-only; no UPDATE/DELETE in this package)
	CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		action TEXT NOT NULL,
		old_value TEXT,
		new_value TEXT,
		user_id TEXT NOT NULL,
		ip_address TEXT NOT NULL,
		user_agent TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_entity
		ON audit_logs(entity_type, entity_id, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_timestamp
		ON audit_logs(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_user
		ON audit_logs(user_id, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_action
		ON audit_logs(action, timestamp DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SALES STORE (sales.Store interface)
// =============================================================================

// CreateSale inserts the sale, its items and its payment atomically.
func (s *Store) CreateSale(ctx context.Context, sale *sales.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO sales
		(id, sale_date, total_amount, discount, final_amount, status, notes,
		 seller_id, customer_id, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID,
		formatTime(sale.SaleDate),
		sale.TotalAmount.String(),
		sale.Discount.String(),
		sale.FinalAmount.String(),
		sale.Status,
		sale.Notes,
		sale.Seller.ID,
		sale.Customer.ID,
		formatTime(sale.CreatedAt),
		formatTime(sale.UpdatedAt),
		sale.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	if err := insertChildren(ctx, sqlTx, sale); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// SaveSale rewrites the aggregate, guarded by the version check.
func (s *Store) SaveSale(ctx context.Context, sale *sales.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	res, err := sqlTx.ExecContext(ctx, `
		UPDATE sales
		SET total_amount = ?, discount = ?, final_amount = ?, status = ?,
		    notes = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		sale.TotalAmount.String(),
		sale.Discount.String(),
		sale.FinalAmount.String(),
		sale.Status,
		sale.Notes,
		formatTime(sale.UpdatedAt),
		sale.ID,
		sale.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update sale: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := sqlTx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sales WHERE id = ?", sale.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check sale existence: %w", err)
		}
		if exists == 0 {
			return sales.ErrSaleNotFound
		}
		return sales.ErrVersionConflict
	}

	// Children are rewritten wholesale; the aggregate is the unit of
	// persistence, not the individual rows.
	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM sale_items WHERE sale_id = ?", sale.ID); err != nil {
		return fmt.Errorf("failed to clear sale items: %w", err)
	}
	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM payments WHERE sale_id = ?", sale.ID); err != nil {
		return fmt.Errorf("failed to clear payment: %w", err)
	}
	if err := insertChildren(ctx, sqlTx, sale); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return err
	}
	sale.Version++
	return nil
}

func insertChildren(ctx context.Context, tx *sql.Tx, sale *sales.Sale) error {
	for i, item := range sale.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items
			(id, sale_id, product_id, product_name, quantity, unit_price, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID, sale.ID, item.ProductID, item.ProductName,
			item.Quantity, item.UnitPrice.String(), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sale item: %w", err)
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments
		(id, sale_id, payment_method, payment_status, amount, payment_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sale.Payment.ID, sale.ID, sale.Payment.Method, sale.Payment.Status,
		sale.Payment.Amount.String(),
		nullTime(sale.Payment.PaidAt),
		formatTime(sale.Payment.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// GetSale loads the fully-resolved aggregate.
func (s *Store) GetSale(ctx context.Context, id string) (*sales.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getSale(ctx, id)
}

func (s *Store) getSale(ctx context.Context, id string) (*sales.Sale, error) {
	row := s.db.QueryRowContext(ctx, saleSelect+" WHERE s.id = ?", id)

	sale, err := scanSale(row)
	if err == sql.ErrNoRows {
		return nil, sales.ErrSaleNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadChildren(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

const saleSelect = `
	SELECT s.id, s.sale_date, s.total_amount, s.discount, s.final_amount,
	       s.status, s.notes, s.created_at, s.updated_at, s.version,
	       u.id, u.name, u.email, u.role, u.active,
	       c.id, c.name, c.email
	FROM sales s
	JOIN users u ON u.id = s.seller_id
	JOIN customers c ON c.id = s.customer_id`

// ListSalesBySeller returns the seller's sales, newest first.
func (s *Store) ListSalesBySeller(ctx context.Context, sellerID string, page sales.Page) ([]*sales.Sale, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sales WHERE seller_id = ?", sellerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	list, err := s.querySales(ctx,
		saleSelect+" WHERE s.seller_id = ? ORDER BY s.sale_date DESC, s.created_at DESC LIMIT ? OFFSET ?",
		sellerID, page.Size, page.Offset())
	return list, total, err
}

// ListSales returns all sales, newest first.
func (s *Store) ListSales(ctx context.Context, page sales.Page) ([]*sales.Sale, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sales").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	list, err := s.querySales(ctx,
		saleSelect+" ORDER BY s.sale_date DESC, s.created_at DESC LIMIT ? OFFSET ?",
		page.Size, page.Offset())
	return list, total, err
}

// ListCustomerSalesInPeriod returns the customer's sales with both
// endpoints inclusive, newest first.
func (s *Store) ListCustomerSalesInPeriod(ctx context.Context, customerID string, from, to time.Time) ([]*sales.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySales(ctx,
		saleSelect+` WHERE s.customer_id = ? AND s.sale_date >= ? AND s.sale_date <= ?
		ORDER BY s.sale_date DESC, s.created_at DESC`,
		customerID, formatTime(from), formatTime(to))
}

func (s *Store) querySales(ctx context.Context, query string, args ...any) ([]*sales.Sale, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var result []*sales.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, sale := range result {
		if err := s.loadChildren(ctx, sale); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSale(row scanner) (*sales.Sale, error) {
	var (
		sale        sales.Sale
		saleDate    string
		totalAmount string
		discount    string
		finalAmount string
		notes       sql.NullString
		createdAt   string
		updatedAt   string
		active      int
	)

	err := row.Scan(
		&sale.ID, &saleDate, &totalAmount, &discount, &finalAmount,
		&sale.Status, &notes, &createdAt, &updatedAt, &sale.Version,
		&sale.Seller.ID, &sale.Seller.Name, &sale.Seller.Email, &sale.Seller.Role, &active,
		&sale.Customer.ID, &sale.Customer.Name, &sale.Customer.Email,
	)
	if err != nil {
		return nil, err
	}

	sale.SaleDate = parseTime(saleDate)
	sale.TotalAmount = parseDecimal(totalAmount)
	sale.Discount = parseDecimal(discount)
	sale.FinalAmount = parseDecimal(finalAmount)
	sale.Notes = notes.String
	sale.CreatedAt = parseTime(createdAt)
	sale.UpdatedAt = parseTime(updatedAt)
	sale.Seller.Active = active == 1
	return &sale, nil
}

func (s *Store) loadChildren(ctx context.Context, sale *sales.Sale) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, quantity, unit_price
		FROM sale_items WHERE sale_id = ? ORDER BY position ASC`, sale.ID)
	if err != nil {
		return fmt.Errorf("failed to query sale items: %w", err)
	}
	defer rows.Close()

	sale.Items = nil
	for rows.Next() {
		var (
			item      sales.SaleItem
			unitPrice string
		)
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &unitPrice); err != nil {
			return fmt.Errorf("failed to scan sale item: %w", err)
		}
		item.UnitPrice = parseDecimal(unitPrice)
		sale.Items = append(sale.Items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var (
		amount      string
		paymentDate sql.NullString
		createdAt   string
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT id, payment_method, payment_status, amount, payment_date, created_at
		FROM payments WHERE sale_id = ?`, sale.ID).Scan(
		&sale.Payment.ID, &sale.Payment.Method, &sale.Payment.Status,
		&amount, &paymentDate, &createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to load payment: %w", err)
	}
	sale.Payment.SaleID = sale.ID
	sale.Payment.Amount = parseDecimal(amount)
	sale.Payment.CreatedAt = parseTime(createdAt)
	if paymentDate.Valid && paymentDate.String != "" {
		paidAt := parseTime(paymentDate.String)
		sale.Payment.PaidAt = &paidAt
	}
	return nil
}

// =============================================================================
// DIRECTORY (sales.Directory interface)
// =============================================================================

// GetUser returns the user or sales.ErrUserNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (*sales.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		user   sales.User
		active int
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, role, active FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.Name, &user.Email, &user.Role, &active)
	if err == sql.ErrNoRows {
		return nil, sales.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	user.Active = active == 1
	return &user, nil
}

// GetCustomer returns the customer or sales.ErrCustomerNotFound.
func (s *Store) GetCustomer(ctx context.Context, id string) (*sales.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var customer sales.Customer
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email FROM customers WHERE id = ?", id).
		Scan(&customer.ID, &customer.Name, &customer.Email)
	if err == sql.ErrNoRows {
		return nil, sales.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	return &customer, nil
}

// GetActiveProduct returns the product only if it exists and is active.
func (s *Store) GetActiveProduct(ctx context.Context, id string) (*sales.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		product sales.Product
		price   string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, price FROM products WHERE id = ? AND active = 1", id).
		Scan(&product.ID, &product.Name, &price)
	if err == sql.ErrNoRows {
		return nil, sales.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	product.Price = parseDecimal(price)
	product.Active = true
	return &product, nil
}

// SaveUser upserts a reference user record (seeding, tests).
func (s *Store) SaveUser(ctx context.Context, u sales.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, active) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email,
			role = excluded.role, active = excluded.active`,
		u.ID, u.Name, u.Email, u.Role, boolToInt(u.Active))
	return err
}

// SaveCustomer upserts a reference customer record (seeding, tests).
func (s *Store) SaveCustomer(ctx context.Context, c sales.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, email) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		c.ID, c.Name, c.Email)
	return err
}

// SaveProduct upserts a reference product record (seeding, tests).
func (s *Store) SaveProduct(ctx context.Context, p sales.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, active) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, price = excluded.price,
			active = excluded.active`,
		p.ID, p.Name, p.Price.String(), boolToInt(p.Active))
	return err
}

// =============================================================================
// AUDIT STORE (audit.Store interface)
// =============================================================================

// Append inserts one audit entry. There is no update or delete path.
func (s *Store) Append(ctx context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs
		(id, entity_type, entity_id, action, old_value, new_value,
		 user_id, ip_address, user_agent, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EntityType, e.EntityID, e.Action,
		nullString(e.OldValue), nullString(e.NewValue),
		e.UserID, e.IPAddress, e.UserAgent, formatTime(e.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

const auditSelect = `
	SELECT id, entity_type, entity_id, action, old_value, new_value,
	       user_id, ip_address, user_agent, timestamp
	FROM audit_logs`

// EntityTrail returns the full unpaginated history for one entity.
func (s *Store) EntityTrail(ctx context.Context, entityType, entityID string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEntries(ctx,
		auditSelect+" WHERE entity_type = ? AND entity_id = ? ORDER BY timestamp DESC, rowid DESC",
		entityType, entityID)
}

// Search returns entries matching the filter, newest first.
func (s *Store) Search(ctx context.Context, f audit.Filter, page audit.Page) ([]audit.Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := []string{"timestamp >= ?", "timestamp <= ?"}
	args := []any{formatTime(f.From), formatTime(f.To)}
	if f.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, f.EntityType)
	}
	if f.EntityID != "" {
		where = append(where, "entity_id = ?")
		args = append(args, f.EntityID)
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, f.Action)
	}
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_logs"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	args = append(args, page.Size, page.Offset())
	entries, err := s.queryEntries(ctx,
		auditSelect+clause+" ORDER BY timestamp DESC, rowid DESC LIMIT ? OFFSET ?", args...)
	return entries, total, err
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e         audit.Entry
			oldValue  sql.NullString
			newValue  sql.NullString
			timestamp string
		)
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action,
			&oldValue, &newValue, &e.UserID, &e.IPAddress, &e.UserAgent, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.OldValue = oldValue.String
		e.NewValue = newValue.String
		e.Timestamp = parseTime(timestamp)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// timeLayout keeps a fixed-width fractional part so that stored
// timestamps compare correctly as strings in ORDER BY and range
// queries.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
