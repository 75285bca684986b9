package domain

import "time"

type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

// User is an identity that can own bookings.
// Username and PasswordHash are nil for accounts created through Google.
type User struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Username     *string      `json:"username,omitempty"`
	Email        string       `json:"email"`
	PasswordHash *string      `json:"-"`
	GoogleID     *string      `json:"-"`
	IsAdmin      bool         `json:"isAdmin"`
	Provider     AuthProvider `json:"provider"`
	AvatarURL    *string      `json:"image,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// HasPassword reports whether the account can log in with a local password.
func (u *User) HasPassword() bool {
	return u.Provider != ProviderGoogle && u.PasswordHash != nil && *u.PasswordHash != ""
}

func (u *User) UsernameValue() string {
	if u.Username == nil {
		return ""
	}
	return *u.Username
}

// UserPublic is the projection of a user that is safe to return to clients.
type UserPublic struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  *string   `json:"username,omitempty"`
	Email     string    `json:"email"`
	Image     *string   `json:"image,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Public() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		Email:     u.Email,
		Image:     u.AvatarURL,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

// OwnerSummary is joined onto bookings for detail and admin views.
type OwnerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
