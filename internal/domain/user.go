package domain

// Roles known to the ticketing application
const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

// Principal is the authenticated user behind a request or socket.
// JSON names follow the ticketing app's token claims.
type Principal struct {
	ID        int64  `json:"id"`
	FirstName string `json:"ad"`
	LastName  string `json:"soyad"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

// HasRole reports whether the principal carries one of the given roles
func (p *Principal) HasRole(roles ...string) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
