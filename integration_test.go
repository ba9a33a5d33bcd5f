package portal_test

import (
	"context"
	"testing"
	"time"

	portal "github.com/goliatone/go-portal"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Full login flow over real components: the user provider verifies
// credentials against a mocked store, the authenticator mints a token,
// and the token round trips back into a session and identity.
func TestLoginSessionIdentityIntegration(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()

	passwordHash, err := portal.HashPassword("password123")
	require.NoError(t, err)

	userID := uuid.New()
	user := &portal.User{
		ID:           userID,
		Username:     "integration@example.com",
		Name:         "Integration User",
		PasswordHash: passwordHash,
		Role:         portal.RoleMechanic,
		IsActive:     true,
	}

	tracker := new(MockUserTracker)
	tracker.On("GetByIdentifier", ctx, "integration@example.com").Return(user, nil)
	tracker.On("TrackSucccessfulLogin", ctx, user).Return(nil)
	tracker.On("TrackAttemptedLogin", ctx, user).Return(nil)

	provider := portal.NewUserProvider(tracker)
	auther := portal.NewAuthenticator(provider, cfg)

	t.Run("wrong password never yields a token", func(t *testing.T) {
		token, err := auther.Login(ctx, "integration@example.com", "wrong")
		assert.Empty(t, token)
		assert.ErrorIs(t, err, portal.ErrMismatchedHashAndPassword)
	})

	var token string

	t.Run("login mints a signed token", func(t *testing.T) {
		token, err = auther.Login(ctx, "integration@example.com", "password123")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		expiration, err := portal.TokenExpiration(token)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(cfg.tokenExpiration), expiration, time.Minute)
	})

	t.Run("token resolves back into a session", func(t *testing.T) {
		session, err := auther.SessionFromToken(token)
		require.NoError(t, err)

		assert.Equal(t, userID.String(), session.GetUserID())
		assert.Equal(t, "integration@example.com", session.GetUsername())
		assert.Equal(t, "Integration User", session.GetName())
		assert.Equal(t, portal.RoleMechanic, session.GetRole())
		assert.Equal(t, cfg.issuer, session.GetIssuer())

		sessionUUID, err := session.GetUserUUID()
		require.NoError(t, err)
		assert.Equal(t, userID, sessionUUID)

		t.Run("and the session resolves into the stored identity", func(t *testing.T) {
			identity, err := auther.IdentityFromSession(ctx, session)
			require.NoError(t, err)

			assert.Equal(t, userID.String(), identity.ID())
			assert.Equal(t, "integration@example.com", identity.Username())
			assert.Equal(t, portal.RoleMechanic, identity.Role())
		})
	})

	t.Run("tampered token is rejected", func(t *testing.T) {
		_, err := auther.SessionFromToken(token + "x")
		assert.Error(t, err)
	})

	tracker.AssertExpectations(t)
}
