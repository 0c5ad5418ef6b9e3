package credentials

import "time"

// Record is the session credential state. Empty strings and a zero IssuedAt stand for "not set".
// A non-empty AccessToken always comes with a non-zero IssuedAt.
type Record struct {
	AccessToken  string
	RefreshToken string
	Role         string
	UserID       string
	RequestID    string
	IssuedAt     time.Time
}

// Authenticated reports whether the record holds an access token.
func (r Record) Authenticated() bool {
	return r.AccessToken != ""
}

// Login is what a successful login hands to the store in one piece.
type Login struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"userId"`
	Role         string `json:"role"`
}
