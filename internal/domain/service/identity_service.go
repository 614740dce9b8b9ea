package service

import (
	"context"

	"tunechat/internal/domain/entity"
)

// IdentityProvider resolves a user id to the profile shown on their messages.
type IdentityProvider interface {
	LookupIdentity(ctx context.Context, userID string) (entity.Identity, error)
}

// TokenVerifier turns a bearer token into a user id.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}
