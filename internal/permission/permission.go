// Package permission holds the pure role predicates that gate user
// mutations. The HTTP handlers are the authority and re-check these before
// applying any action; clients use the same predicates to hide controls.
package permission

import "github.com/naseaoi/IceTV/internal/models"

// Context identifies the acting administrator. An empty Role means
// unauthenticated and satisfies no predicate.
type Context struct {
	Role     string // models.RoleOwner or models.RoleAdmin
	Username string
}

// CanConfigure reports whether the actor may open the target user's
// settings. Owners may configure anyone; admins may configure plain users
// and themselves.
func CanConfigure(target models.ManagedUser, ctx Context) bool {
	switch ctx.Role {
	case models.RoleOwner:
		return true
	case models.RoleAdmin:
		return target.Role == models.RoleUser || target.Username == ctx.Username
	default:
		return false
	}
}

// CanChangePassword reports whether the actor may set the target's
// password. The owner account never has its password managed here.
func CanChangePassword(target models.ManagedUser, ctx Context) bool {
	if target.Role == models.RoleOwner {
		return false
	}
	return CanConfigure(target, ctx)
}

// CanOperate reports whether the actor may ban/unban or change the role of
// the target. Nobody operates on themselves.
func CanOperate(target models.ManagedUser, ctx Context) bool {
	if target.Username == ctx.Username {
		return false
	}
	switch ctx.Role {
	case models.RoleOwner:
		return true
	case models.RoleAdmin:
		return target.Role == models.RoleUser
	default:
		return false
	}
}

// CanDelete reports whether the actor may delete the target account.
// Same rule as CanOperate: never self, owner over all, admin over users.
func CanDelete(target models.ManagedUser, ctx Context) bool {
	return CanOperate(target, ctx)
}

// SelectableUsers filters users down to those the actor may configure.
func SelectableUsers(users []models.ManagedUser, ctx Context) []models.ManagedUser {
	out := make([]models.ManagedUser, 0, len(users))
	for _, u := range users {
		if CanConfigure(u, ctx) {
			out = append(out, u)
		}
	}
	return out
}
