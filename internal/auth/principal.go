package auth

import (
	"context"

	"musiccatalog/internal/apperrors"
	"musiccatalog/pkg/models"
)

// Principal is the acting identity of a request
type Principal struct {
	UserID int64
	Role   models.Role
}

// IsAdmin reports whether the principal holds elevated privilege
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// CanActFor reports whether p may act on resources owned by userID
func (p Principal) CanActFor(userID int64) bool {
	return p.UserID == userID || p.IsAdmin()
}

// RequireAdmin fails with an AuthorizationError for non-admins
func (p Principal) RequireAdmin() error {
	if !p.IsAdmin() {
		return apperrors.Forbidden("admin privileges required")
	}
	return nil
}

type principalKey struct{}

// WithPrincipal stores p on ctx
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored on ctx, if any
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
