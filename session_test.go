package gatekeeper_test

import (
	"testing"
	"time"

	gatekeeper "github.com/pixelmorph/go-gatekeeper"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionObjectAccessors(t *testing.T) {
	now := time.Now()
	exp := now.Add(24 * time.Hour)
	id := uuid.New()

	session := &gatekeeper.SessionObject{
		UserID:         id.String(),
		Email:          "user@example.com",
		Role:           gatekeeper.RoleCoOwner,
		IsWhitelisted:  true,
		IssuedAt:       &now,
		ExpirationDate: &exp,
	}

	assert.Equal(t, id.String(), session.GetUserID())
	assert.Equal(t, "user@example.com", session.GetEmail())
	assert.Equal(t, gatekeeper.RoleCoOwner, session.GetRole())
	assert.True(t, session.GetIsWhitelisted())
	assert.Equal(t, &now, session.GetIssuedAt())
	assert.Equal(t, &exp, session.GetExpiration())

	parsed, err := session.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestSessionObjectRoleDefaults(t *testing.T) {
	session := &gatekeeper.SessionObject{}
	assert.Equal(t, gatekeeper.RoleUser, session.GetRole())
	assert.False(t, session.CanManageUsers())
}

func TestSessionObjectRoleChecks(t *testing.T) {
	session := &gatekeeper.SessionObject{Role: gatekeeper.RoleAdmin}

	assert.True(t, session.IsAtLeast(gatekeeper.RoleCoOwner))
	assert.True(t, session.CanManageUsers())

	session.Role = gatekeeper.RoleUser
	assert.False(t, session.CanManageUsers())
}

func TestSessionObjectValid(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name    string
		expires *time.Time
		want    bool
	}{
		{"inside window", &future, true},
		{"past window", &past, false},
		{"no expiry", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &gatekeeper.SessionObject{ExpirationDate: tt.expires}
			assert.Equal(t, tt.want, session.Valid(now))
		})
	}
}

func TestSessionObjectGetUserUUIDRejectsGarbage(t *testing.T) {
	session := &gatekeeper.SessionObject{UserID: "not-a-uuid"}
	_, err := session.GetUserUUID()
	assert.Error(t, err)
}
