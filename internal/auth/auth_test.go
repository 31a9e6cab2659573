package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	id := Identity{UserID: "u-1", Email: "a@b.co", Role: model.RoleHost}

	pair, err := m.Issue(id)
	require.NoError(t, err)

	got, err := m.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = m.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
}

func TestTokenManager_SecretsAreNotInterchangeable(t *testing.T) {
	m := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	pair, err := m.Issue(Identity{UserID: "u-1", Role: model.RoleUser})
	require.NoError(t, err)

	_, err = m.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }
	pair, err := m.Issue(Identity{UserID: "u-1", Role: model.RoleUser})
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = m.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Garbage(t *testing.T) {
	m := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	_, err := m.VerifyAccess("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("s3cret!")
	require.NoError(t, err)

	assert.True(t, h.Compare(hash, "s3cret!"))
	assert.False(t, h.Compare(hash, "wrong"))
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(99).cost)
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u", Role: model.RoleAdmin})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.True(t, id.HasRole(model.RoleHost, model.RoleAdmin))
	assert.False(t, id.HasRole(model.RoleUser))
}
