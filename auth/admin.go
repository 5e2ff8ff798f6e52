package auth

import "strings"

// AdminChecker grants admin scope by role claim or by a configured email list.
type AdminChecker struct {
	role   string
	emails map[string]struct{}
}

func NewAdminChecker(role string, emails []string) *AdminChecker {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return &AdminChecker{role: role, emails: set}
}

// IsAdmin reports whether id carries the admin role in app_metadata
// ("role" or "roles") or its email is on the admin list.
func (a *AdminChecker) IsAdmin(id *Identity) bool {
	if id == nil {
		return false
	}
	if id.Email != "" {
		if _, ok := a.emails[strings.ToLower(id.Email)]; ok {
			return true
		}
	}
	if a.role == "" || id.AppMetadata == nil {
		return false
	}
	if role, ok := id.AppMetadata["role"].(string); ok && role == a.role {
		return true
	}
	switch roles := id.AppMetadata["roles"].(type) {
	case []interface{}:
		for _, r := range roles {
			if s, ok := r.(string); ok && s == a.role {
				return true
			}
		}
	case []string:
		for _, r := range roles {
			if r == a.role {
				return true
			}
		}
	}
	return false
}
