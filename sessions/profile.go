package sessions

// UserProfile is the last-known user record, cached so pages can render the user without a
// round trip. It is replaced wholesale on login and tenant selection.
type UserProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	IsActive  bool   `json:"is_active"`
	LastLogin string `json:"last_login,omitempty"`
}

// DisplayName prefers the full name and falls back to the email.
func (p UserProfile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}
