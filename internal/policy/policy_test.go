package policy

import (
	"errors"
	"testing"

	"github.com/engagement-api/internal/session"
)

func TestRequireOwner(t *testing.T) {
	tests := []struct {
		name    string
		id      *session.Identity
		owner   string
		wantErr error
	}{
		{name: "author", id: &session.Identity{ID: "u1"}, owner: "u1"},
		{name: "other user", id: &session.Identity{ID: "u2"}, owner: "u1", wantErr: ErrNotAuthorized},
		{name: "anonymous", id: nil, owner: "u1", wantErr: ErrNotAuthenticated},
		{name: "empty id", id: &session.Identity{}, owner: "u1", wantErr: ErrNotAuthenticated},
		{name: "ownerless record", id: &session.Identity{ID: "u1"}, owner: "", wantErr: ErrNotAuthorized},
		{name: "nested path id", id: &session.Identity{ID: "team/alice"}, owner: "team/alice", wantErr: ErrNotAuthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireOwner(tt.id, tt.owner)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RequireOwner() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
