package portal

// RequireRole is the role guard: it compares an authenticated identity's role
// against an allowed set. A nil claim set means the access middleware never
// ran; that is an authentication failure, not an authorization one.
func RequireRole(claims AuthClaims, allowed ...UserRole) error {
	if claims == nil {
		return ErrUnauthenticated
	}
	for _, role := range allowed {
		if claims.HasRole(role) {
			return nil
		}
	}
	return ErrForbidden
}

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleCustomer, RoleMechanic, RoleAdmin:
		return true
	default:
		return false
	}
}

// RoleAtLeast checks if a role meets the minimum required level
func RoleAtLeast(r, minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleCustomer: 0,
		RoleMechanic: 1,
		RoleAdmin:    2,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleCustomer,
		RoleMechanic,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}
