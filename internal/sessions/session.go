package sessions

import "time"

// Session is the server-side proof of an admin login, referenced by the
// opaque ID held in the admin_session cookie.
type Session struct {
	ID           string    `json:"id"`
	LoggedIn     bool      `json:"loggedIn"`
	CreatedAt    time.Time `json:"timestamp"`
	LastActivity time.Time `json:"lastActivity"`
	// ExpiresAt is fixed at creation; activity never moves it.
	ExpiresAt time.Time `json:"expiresAt"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
}

// Expired reports whether the absolute lifetime has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
