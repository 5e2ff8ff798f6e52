package auth

import "motoreg/utils"

// Scope is the capability an API surface requires.
type Scope int

const (
	// ScopeUser is any authenticated caller; ownership is checked by the handler.
	ScopeUser Scope = iota
	// ScopeAdmin allows cross-team reads and writes.
	ScopeAdmin
)

// Authorize runs before any store access. On success the handler still
// applies ownership checks against id.
func Authorize(id *Identity, isAdmin bool, scope Scope) error {
	if id == nil {
		return utils.Unauthenticated("Not authenticated")
	}
	if scope == ScopeAdmin && !isAdmin {
		return utils.Forbidden("Access denied. Admin privileges required.")
	}
	return nil
}
