package domain

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// SupportedRoles is the closed set of assignable roles.
var SupportedRoles = []string{RoleUser, RoleAdmin}

func ValidRole(role string) bool {
	for _, r := range SupportedRoles {
		if r == role {
			return true
		}
	}
	return false
}
