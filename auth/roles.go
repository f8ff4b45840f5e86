package auth

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role (read, comment, own-content edits)
	RoleUser UserRole = "user"
	// RoleAdmin can manage any content
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}
