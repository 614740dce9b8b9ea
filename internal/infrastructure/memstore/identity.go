package memstore

import (
	"context"
	"strings"
	"sync"

	"tunechat/internal/domain/entity"
	"tunechat/pkg/errors"
)

const devTokenPrefix = "dev:"

// Directory is an in-memory user directory. Unknown users resolve to an
// identity named after their id.
type Directory struct {
	mu    sync.RWMutex
	users map[string]entity.Identity
}

func NewDirectory(users ...entity.Identity) *Directory {
	d := &Directory{users: make(map[string]entity.Identity)}
	for _, u := range users {
		d.Put(u)
	}
	return d
}

func (d *Directory) Put(identity entity.Identity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[identity.UserID] = identity
}

func (d *Directory) LookupIdentity(_ context.Context, userID string) (entity.Identity, error) {
	if userID == "" {
		return entity.Identity{}, errors.BadRequest("User id is required", nil)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if identity, ok := d.users[userID]; ok {
		return identity, nil
	}
	return entity.Identity{UserID: userID, DisplayName: userID}, nil
}

// VerifyToken accepts "dev:<uid>" tokens. It is only wired in dev mode.
func (d *Directory) VerifyToken(_ context.Context, token string) (string, error) {
	if !strings.HasPrefix(token, devTokenPrefix) {
		return "", errors.Unauthorized("Invalid token", nil)
	}
	uid := strings.TrimPrefix(token, devTokenPrefix)
	if uid == "" {
		return "", errors.Unauthorized("Invalid token", nil)
	}
	return uid, nil
}

// DevToken returns the token VerifyToken accepts for uid.
func DevToken(uid string) string {
	return devTokenPrefix + uid
}
