package domain

import "time"

// Identity is the signed-in principal as known to the identity provider.
type Identity struct {
	UID          string    `json:"uid"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastSignInAt time.Time `json:"last_sign_in_at"`
}

// ProfilePatch carries the mutable profile fields. Nil fields are left untouched.
type ProfilePatch struct {
	DisplayName *string
	PhotoURL    *string
}

// Apply returns a copy of id with the non-nil patch fields applied.
func (p ProfilePatch) Apply(id Identity) Identity {
	if p.DisplayName != nil {
		id.DisplayName = *p.DisplayName
	}
	if p.PhotoURL != nil {
		id.PhotoURL = *p.PhotoURL
	}
	return id
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.DisplayName == nil && p.PhotoURL == nil
}
