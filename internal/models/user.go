package models

// Role is a dashboard role.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleWriter Role = "REDACTEUR"
)

// User is an authenticated dashboard user as returned by the backend.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	LastName  string `json:"nom"`
	FirstName string `json:"prenom,omitempty"`
	Role      Role   `json:"role"`
}

// IsAdmin reports whether the user may review and publish.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
