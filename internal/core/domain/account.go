package domain

import "time"

// Account is the local identity provider's stored credential record.
type Account struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	DisplayName  string `json:"display_name"`
	PhotoURL     string `json:"photo_url,omitempty"`
	// SessionVersion is bumped on sign-out; tokens minted for an older
	// version are stale.
	SessionVersion int64     `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	LastSignInAt   time.Time `json:"last_sign_in_at"`
}

// Identity returns the public view of the account.
func (a *Account) Identity() *Identity {
	return &Identity{
		UID:          a.ID,
		DisplayName:  a.DisplayName,
		Email:        a.Email,
		PhotoURL:     a.PhotoURL,
		CreatedAt:    a.CreatedAt,
		LastSignInAt: a.LastSignInAt,
	}
}
