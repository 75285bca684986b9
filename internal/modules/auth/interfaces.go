package auth

import "context"

// GoogleProvider performs the OAuth authorization-code flow against Google.
type GoogleProvider interface {
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for a verified identity.
	Exchange(ctx context.Context, code string) (*GoogleIdentity, error)
}
