package domain

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID   string
	Email    string
	Username string
	IsAdmin  bool
}
