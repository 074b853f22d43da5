/*
Package audit records an immutable trail of every state-changing
operation on the system's entities.

APPEND-ONLY ENFORCEMENT:
  Entries are created once and never updated or deleted. The store
  interface deliberately exposes no update/delete operations; the query
  surface only ever reads.

PROVENANCE:
  Each entry captures who acted (user id), from where (client IP and
  user agent, resolved from the request context by the boundary layer)
  and when.

SEE ALSO:
  - recorder.go: Recorder implementation and query surface
  - store/sqlite: persisted audit_logs table
*/
package audit

import (
	"context"
	"time"
)

// Entity types recorded by the sales core.
const (
	EntitySale    = "SALE"
	EntityPayment = "PAYMENT"
)

// Actions recorded by the sales core.
const (
	ActionCreate          = "CREATE"
	ActionUpdate          = "UPDATE"
	ActionCancel          = "CANCEL"
	ActionPaymentReceived = "PAYMENT_RECEIVED"
)

// Unknown is the sentinel recorded when request provenance cannot be
// resolved.
const Unknown = "UNKNOWN"

// Entry is one immutable audit fact.
type Entry struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	OldValue   string    `json:"old_value,omitempty"`
	NewValue   string    `json:"new_value,omitempty"`
	UserID     string    `json:"user_id"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	Timestamp  time.Time `json:"timestamp"`
}

// Filter selects entries for a search. Zero-valued fields are ignored;
// a zero time range defaults to the trailing one month through now.
type Filter struct {
	EntityType string
	EntityID   string
	Action     string
	UserID     string
	From       time.Time
	To         time.Time
}

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

// Store persists audit entries. Append-only.
type Store interface {
	// Append inserts one entry.
	Append(ctx context.Context, e Entry) error

	// EntityTrail returns the full, unpaginated history for one entity,
	// newest first.
	EntityTrail(ctx context.Context, entityType, entityID string) ([]Entry, error)

	// Search returns entries matching the filter, newest first, plus
	// the total count across all pages. The filter's time range is
	// always set by the caller (Recorder applies the default window).
	Search(ctx context.Context, f Filter, page Page) ([]Entry, int, error)
}

// =============================================================================
// REQUEST PROVENANCE - threaded through context by the boundary layer
// =============================================================================

// Meta is the request provenance attached by the HTTP layer.
type Meta struct {
	IPAddress string
	UserAgent string
}

type metaKey struct{}

// WithMeta returns a context carrying the request provenance.
func WithMeta(ctx context.Context, m Meta) context.Context {
	return context.WithValue(ctx, metaKey{}, m)
}

// MetaFromContext returns the request provenance, substituting the
// UNKNOWN sentinel for anything missing.
func MetaFromContext(ctx context.Context) Meta {
	m, _ := ctx.Value(metaKey{}).(Meta)
	if m.IPAddress == "" {
		m.IPAddress = Unknown
	}
	if m.UserAgent == "" {
		m.UserAgent = Unknown
	}
	return m
}
