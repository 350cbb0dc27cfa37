package domain

import "time"

// Credential is the verified content of a bearer token.
type Credential struct {
	Subject   string
	Name      string
	Roles     map[string]bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasRole reports whether the credential grants the role.
func (c Credential) HasRole(role string) bool {
	return c.Roles[role]
}
