package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/collabify/collabify/internal/domain/user"
)

type contextKey string

const authUserKey contextKey = "authUser"

// AuthUser is the authenticated principal attached to a request.
type AuthUser struct {
	UserID    uuid.UUID
	Email     string
	Role      user.Role
	BrandID   *uuid.UUID
	SessionID uuid.UUID
	Token     string
}

func contextWithAuthUser(ctx context.Context, u *AuthUser) context.Context {
	return context.WithValue(ctx, authUserKey, u)
}

func authUserFromContext(ctx context.Context) *AuthUser {
	u, _ := ctx.Value(authUserKey).(*AuthUser)
	return u
}
