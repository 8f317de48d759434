// Package client binds requests to a storefront client profile.
// A profile is the unit of local state (one browser profile in a web shell);
// a tab is one open view of that profile. REST requests carry both in the
// Storefront-Client header; MCP tool calls pass them as arguments.
package client

import (
	"context"

	"github.com/google/uuid"
)

// Header is the request header carrying the client identity.
const Header = "Storefront-Client"

// Identity names the profile and tab a request acts for.
type Identity struct {
	Profile string
	Tab     string
	Version string // Client protocol version, optional
}

// contextKey is the type for context values to avoid collisions
type contextKey string

// IdentityContextKey is the context key for storing Identity
const IdentityContextKey contextKey = "storefront.client"

// Error codes returned by the middleware.
const (
	IdentityRequired   = "client_identity_required"
	VersionUnsupported = "client_version_unsupported"
)

// NewProfileID returns a fresh random profile id.
func NewProfileID() string {
	return uuid.NewString()
}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, id)
}

// FromContext retrieves the identity stored by Middleware.
// Returns false if the request was exempt or not identified.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(Identity)
	return id, ok
}
