/*
recorder.go - Audit entry creation and query surface

WRITE POLICY:
  Audit writes are best-effort. A failed append is logged and swallowed;
  it never changes the outcome of the business operation that triggered
  it. Record therefore returns nothing - the policy is applied here,
  uniformly, instead of being re-decided at every call site.

QUERY SURFACE:
  Read-only, paginated, newest first. The entity trail is the one
  unpaginated query: the complete history of a single entity. Search
  accepts any combination of filters; a missing time range defaults to
  the trailing one month through now.
*/
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPageSize is the audit search page size when none is requested.
const DefaultPageSize = 20

// Recorder writes and queries audit entries.
type Recorder struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder over the given store.
func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger, now: time.Now}
}

// Change describes one state-changing operation to be recorded.
type Change struct {
	EntityType string
	EntityID   string
	Action     string
	OldValue   string
	NewValue   string
	ActorID    string
}

// Record persists one audit entry for the change, stamping the current
// time and the request provenance carried by ctx. Failures are logged
// and swallowed per the write policy above.
func (r *Recorder) Record(ctx context.Context, c Change) {
	meta := MetaFromContext(ctx)
	entry := Entry{
		ID:         uuid.NewString(),
		EntityType: c.EntityType,
		EntityID:   c.EntityID,
		Action:     c.Action,
		OldValue:   c.OldValue,
		NewValue:   c.NewValue,
		UserID:     c.ActorID,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Timestamp:  r.now(),
	}

	if err := r.store.Append(ctx, entry); err != nil {
		r.logger.Error("failed to write audit entry",
			zap.String("entity_type", c.EntityType),
			zap.String("entity_id", c.EntityID),
			zap.String("action", c.Action),
			zap.Error(err))
		return
	}

	r.logger.Info("audit entry recorded",
		zap.String("entity_type", c.EntityType),
		zap.String("entity_id", c.EntityID),
		zap.String("action", c.Action),
		zap.String("user_id", c.ActorID))
}

// EntityTrail returns the full history of one entity, newest first.
func (r *Recorder) EntityTrail(ctx context.Context, entityType, entityID string) ([]Entry, error) {
	return r.store.EntityTrail(ctx, entityType, entityID)
}

// Search returns entries matching the filter, newest first. A zero From
// defaults to one month before now; a zero To defaults to now.
func (r *Recorder) Search(ctx context.Context, f Filter, page Page) ([]Entry, int, error) {
	if f.To.IsZero() {
		f.To = r.now()
	}
	if f.From.IsZero() {
		f.From = f.To.AddDate(0, -1, 0)
	}
	return r.store.Search(ctx, f, page.Normalize(DefaultPageSize))
}
