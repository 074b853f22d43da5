/*
patch.go - Explicit present-vs-absent partial updates

A plain struct with nil-able fields cannot distinguish "clear this field"
from "leave it unchanged". SalePatch wraps every updatable attribute in
Optional so the edit path applies exactly the fields the caller set and
nothing else.
*/
package sales

import "github.com/shopspring/decimal"

// Optional is a value that may be absent. The zero Optional is absent.
type Optional[T any] struct {
	value T
	set   bool
}

// Set returns an Optional holding v.
func Set[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Get returns the value and whether it was set.
func (o Optional[T]) Get() (T, bool) { return o.value, o.set }

// IsSet reports whether the value is present.
func (o Optional[T]) IsSet() bool { return o.set }

// ItemInput is one requested line item, as submitted by the caller.
type ItemInput struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// SalePatch is a partial update of a pending sale. Absent fields leave
// the corresponding attribute unchanged. Replacing items re-derives the
// sale totals under the same formula as creation.
type SalePatch struct {
	Items         Optional[[]ItemInput]
	Discount      Optional[decimal.Decimal]
	Notes         Optional[string]
	PaymentMethod Optional[PaymentMethod]
}

// Empty reports whether the patch changes nothing.
func (p SalePatch) Empty() bool {
	return !p.Items.IsSet() && !p.Discount.IsSet() &&
		!p.Notes.IsSet() && !p.PaymentMethod.IsSet()
}
