/*
errors.go - Centralized error types for the sales domain

ERROR CLASSES:
  1. Not-found errors     - referenced sale/customer/product/user absent
  2. Validation errors    - malformed input (empty items, bad quantity)
  3. Business errors      - valid input, illegal state transition
  4. Authorization errors - access guard denial
  5. Conflict errors      - optimistic concurrency failure

Boundary layers map these classes to transport status codes; the domain
only ever returns/wraps the errors below and surfaces them at the point
of detection, before any persistence side effect.
*/
package sales

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSaleNotFound is returned when the referenced sale does not exist.
	ErrSaleNotFound = errors.New("sale not found")

	// ErrCustomerNotFound is returned when the referenced customer does not exist.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrProductNotFound is returned when a referenced product is missing
	// or inactive. Inactive products are indistinguishable from absent ones
	// on purpose: they must not be sellable.
	ErrProductNotFound = errors.New("product not found or inactive")

	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoItems is returned when a sale is created or patched with an
	// empty item list. A sale with zero items is never permitted.
	ErrNoItems = errors.New("sale must contain at least one item")

	// ErrInvalidInput is the base error for field-level validation failures.
	// Wrapped by ValidationError with field detail.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDiscountTooLarge is returned when the discount would drive the
	// final amount negative.
	ErrDiscountTooLarge = errors.New("discount exceeds total amount")

	// ErrSaleNotEditable is returned when editing a sale that is not in
	// the PENDING state. Only pending sales can be edited.
	ErrSaleNotEditable = errors.New("only pending sales can be edited")

	// ErrUnauthorized is returned when the access guard denies the actor.
	ErrUnauthorized = errors.New("not authorized to access this sale")

	// ErrVersionConflict is returned when the store detects a concurrent
	// modification of the same sale.
	ErrVersionConflict = errors.New("sale was modified concurrently")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError carries field-level detail about a malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// IsNotFound reports whether err indicates a missing referenced entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSaleNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsBadRequest reports whether err indicates malformed input.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrNoItems) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDiscountTooLarge)
}

// IsBusinessRule reports whether err indicates a valid request against
// an illegal state transition.
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrSaleNotEditable)
}

// IsUnauthorized reports whether err indicates an access guard denial.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsConflict reports whether err indicates a concurrent modification.
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
