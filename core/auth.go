package core

import (
	"context"
	"errors"
	"fmt"
)

// CredentialStore is the read side of the user store needed to authenticate.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
}

// CredentialAuthenticator checks an email+password pair against the stored record.
type CredentialAuthenticator struct {
	users  CredentialStore
	hasher PasswordHasher
}

func NewCredentialAuthenticator(users CredentialStore, hasher PasswordHasher) *CredentialAuthenticator {
	return &CredentialAuthenticator{users: users, hasher: hasher}
}

// Authenticate returns the principal of the matching record or an
// AuthenticationError. It only reads.
func (a *CredentialAuthenticator) Authenticate(ctx context.Context, email, password string) (Principal, error) {
	u, err := a.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Principal{}, AuthenticationError("no such credential")
		}
		return Principal{}, fmt.Errorf("find credential: %w", err)
	}

	ok, err := a.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return Principal{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return Principal{}, AuthenticationError("bad credentials")
	}
	if !u.Enabled {
		return Principal{}, AuthenticationError("user is disabled")
	}
	return u.Principal(), nil
}
