// Package policy holds the checks every mutation passes before touching the store.
package policy

import (
	"errors"

	"github.com/engagement-api/internal/session"
	"github.com/engagement-api/internal/validation"
)

var (
	ErrNotAuthenticated = errors.New("sign in required")
	ErrNotAuthorized    = errors.New("only the author may change this")
)

// RequireIdentity rejects anonymous callers and user ids that are not a
// single path segment
func RequireIdentity(id *session.Identity) error {
	if id == nil || id.ID == "" {
		return ErrNotAuthenticated
	}
	if len(validation.ValidateID("userId", id.ID)) > 0 {
		return ErrNotAuthenticated
	}
	return nil
}

// RequireOwner rejects callers other than ownerID
func RequireOwner(id *session.Identity, ownerID string) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if ownerID == "" || id.ID != ownerID {
		return ErrNotAuthorized
	}
	return nil
}
