package firebase

import (
	"context"
	"strings"

	"firebase.google.com/go/v4/auth"

	"tunechat/internal/domain/entity"
	"tunechat/pkg/errors"
)

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", errors.Unauthorized("Invalid token", err)
	}

	return result.UID, nil
}

// LookupIdentity builds the sender profile from the Firebase user record.
func (f *FirebaseAuthClient) LookupIdentity(ctx context.Context, userID string) (entity.Identity, error) {
	user, err := f.client.GetUser(ctx, userID)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return entity.Identity{}, errors.NotFound("User", err)
		}
		return entity.Identity{}, errors.Internal("Failed to load user profile", err)
	}

	return entity.Identity{
		UserID:      user.UID,
		DisplayName: displayName(user.DisplayName, user.Email, user.UID),
		AvatarURL:   user.PhotoURL,
	}, nil
}

func displayName(name, email, uid string) string {
	if name != "" {
		return name
	}
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return uid
}
