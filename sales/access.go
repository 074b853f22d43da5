/*
access.go - Sale visibility and mutation guard

INVARIANT: a seller only ever touches their own sales; admins touch
everything; any other role touches nothing. Every per-sale read and
every mutation in manager.go runs through this predicate before any
persistence side effect.
*/
package sales

// CanAccess reports whether actor may read or mutate sale.
func CanAccess(actor User, sale *Sale) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleSeller:
		return sale.Seller.ID == actor.ID
	default:
		return false
	}
}
