// Package scope derives row-visibility predicates from the caller's
// verified identity.
//
// Every list/get on properties, units, leases, payments and issues composes
// one of these predicates into its WHERE clause at query-construction time,
// so out-of-scope rows are never materialized. The role→predicate table:
//
//	role              Property        Lease                       Payment                          Issue
//	landlord/manager  owner = caller  unit.property.owner=caller  lease.unit.property.owner=caller owned property or reporter=caller
//	tenant            none            tenant = caller             lease.tenant = caller            reporter = caller
package scope

import (
	"fmt"

	"github.com/Sophie-Muchiri12/rentmg/internal/models"
)

// Identity is the verified identity claim attached to a request. It is
// passed explicitly into every repository call; there is no ambient
// current-user lookup.
type Identity struct {
	UserID int64
	Role   models.Role
}

// Predicate is a SQL fragment plus its bind arguments. The fragment's
// placeholders start at the index given to the constructor, so callers can
// splice it into a larger query.
type Predicate struct {
	SQL  string
	Args []any
}

// none matches no row.
func none() Predicate { return Predicate{SQL: "FALSE"} }

func owned(column string, ident Identity, arg int) Predicate {
	return Predicate{
		SQL:  fmt.Sprintf("%s = $%d", column, arg),
		Args: []any{ident.UserID},
	}
}

// Properties scopes queries against properties p.
func Properties(ident Identity, arg int) Predicate {
	if ident.Role.IsOwner() {
		return owned("p.owner_id", ident, arg)
	}
	return none()
}

// Units scopes queries against units u joined to properties p. Tenants see
// units they hold a lease on.
func Units(ident Identity, arg int) Predicate {
	if ident.Role.IsOwner() {
		return owned("p.owner_id", ident, arg)
	}
	return Predicate{
		SQL:  fmt.Sprintf("EXISTS (SELECT 1 FROM leases sl WHERE sl.unit_id = u.id AND sl.tenant_id = $%d)", arg),
		Args: []any{ident.UserID},
	}
}

// Leases scopes queries against leases l joined to units u and properties p.
func Leases(ident Identity, arg int) Predicate {
	if ident.Role.IsOwner() {
		return owned("p.owner_id", ident, arg)
	}
	return owned("l.tenant_id", ident, arg)
}

// Payments scopes queries against payments pay joined through leases l,
// units u and properties p.
func Payments(ident Identity, arg int) Predicate {
	if ident.Role.IsOwner() {
		return owned("p.owner_id", ident, arg)
	}
	return owned("l.tenant_id", ident, arg)
}

// Issues scopes queries against issues i left-joined to properties p.
// Landlords and managers see issues on properties they own plus issues they
// reported themselves (tickets filed without a property reference included).
func Issues(ident Identity, arg int) Predicate {
	if ident.Role.IsOwner() {
		return Predicate{
			SQL:  fmt.Sprintf("(p.owner_id = $%d OR i.reporter_id = $%d)", arg, arg+1),
			Args: []any{ident.UserID, ident.UserID},
		}
	}
	return owned("i.reporter_id", ident, arg)
}
