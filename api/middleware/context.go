package middleware

import (
	"context"

	"github.com/angelmondragon/medrec-backend/pkg/enums"
	"github.com/google/uuid"
)

type principalKey struct{}

// Principal is the authenticated caller behind a request.
type Principal struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	AccessID string // jti of the token that authenticated the request
}

// WithPrincipal stores p on the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext reports the caller seeded by Auth, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.UserID == uuid.Nil {
		return Principal{}, false
	}
	return p, true
}
