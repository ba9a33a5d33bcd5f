package portal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	portal "github.com/goliatone/go-portal"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func activeUser(password string) *portal.User {
	passwordHash, _ := portal.HashPassword(password)
	return &portal.User{
		ID:           uuid.New(),
		Username:     "test@example.com",
		Name:         "Test User",
		PasswordHash: passwordHash,
		Role:         portal.RoleAdmin,
		IsActive:     true,
	}
}

func TestUserProviderVerifyIdentity(t *testing.T) {
	ctx := context.Background()
	mockTracker := new(MockUserTracker)

	provider := portal.NewUserProvider(mockTracker)

	t.Run("Successful verification", func(t *testing.T) {
		user := activeUser("password123")

		mockTracker.On("GetByIdentifier", ctx, "test@example.com").Return(user, nil).Once()
		mockTracker.On("TrackSucccessfulLogin", ctx, user).Return(nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		assert.NoError(t, err)
		assert.NotNil(t, identity)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, "test@example.com", identity.Username())
		assert.Equal(t, "Test User", identity.Name())
		assert.Equal(t, portal.RoleAdmin, identity.Role())

		mockTracker.AssertExpectations(t)
	})

	t.Run("Invalid password", func(t *testing.T) {
		user := activeUser("correct_password")

		mockTracker.On("GetByIdentifier", ctx, "test@example.com").Return(user, nil).Once()
		mockTracker.On("TrackAttemptedLogin", ctx, user).Return(nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "wrong_password")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, portal.ErrMismatchedHashAndPassword)

		mockTracker.AssertExpectations(t)
	})

	t.Run("User not found collapses into invalid credentials", func(t *testing.T) {
		mockTracker.On("GetByIdentifier", ctx, "nonexistent@example.com").
			Return(nil, repository.NewRecordNotFound()).Once()

		identity, err := provider.VerifyIdentity(ctx, "nonexistent@example.com", "password123")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, portal.ErrMismatchedHashAndPassword)

		mockTracker.AssertExpectations(t)
	})

	t.Run("Disabled account rejected before password check", func(t *testing.T) {
		user := activeUser("password123")
		user.IsActive = false

		mockTracker.On("GetByIdentifier", ctx, "test@example.com").Return(user, nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, portal.ErrAccountDisabled)

		mockTracker.AssertExpectations(t)
	})

	t.Run("Too many login attempts", func(t *testing.T) {
		user := activeUser("password123")
		now := time.Now()
		user.LoginAttempts = portal.MaxLoginAttempts + 1
		user.LoginAttemptAt = &now

		mockTracker.On("GetByIdentifier", ctx, "test@example.com").Return(user, nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, portal.ErrTooManyLoginAttempts)

		mockTracker.AssertExpectations(t)
	})

	t.Run("Login attempts cooldown expired", func(t *testing.T) {
		user := activeUser("password123")
		oldAttempt := time.Now().Add(-48 * time.Hour)
		user.LoginAttempts = portal.MaxLoginAttempts + 1
		user.LoginAttemptAt = &oldAttempt

		mockTracker.On("GetByIdentifier", ctx, "test@example.com").Return(user, nil).Once()
		mockTracker.On("TrackSucccessfulLogin", ctx, mock.MatchedBy(func(u *portal.User) bool {
			return u.ID == user.ID && u.LoginAttempts == 0 // attempts reset
		})).Return(nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		assert.NoError(t, err)
		assert.NotNil(t, identity)
		assert.Equal(t, user.ID.String(), identity.ID())

		mockTracker.AssertExpectations(t)
	})

	t.Run("Store failure surfaces as store unavailable", func(t *testing.T) {
		mockTracker.On("GetByIdentifier", ctx, "test@example.com").
			Return(nil, errors.New("connection refused")).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		assert.Nil(t, identity)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "service temporarily unavailable")

		mockTracker.AssertExpectations(t)
	})
}

func TestUserProviderFindIdentityByIdentifier(t *testing.T) {
	ctx := context.Background()
	mockTracker := new(MockUserTracker)

	provider := portal.NewUserProvider(mockTracker)

	t.Run("User found", func(t *testing.T) {
		user := activeUser("password123")

		mockTracker.On("GetByIdentifier", ctx, "test@example.com").Return(user, nil).Once()

		identity, err := provider.FindIdentityByIdentifier(ctx, "test@example.com")

		assert.NoError(t, err)
		assert.NotNil(t, identity)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, "test@example.com", identity.Username())
		assert.Equal(t, portal.RoleAdmin, identity.Role())

		mockTracker.AssertExpectations(t)
	})

	t.Run("User not found", func(t *testing.T) {
		mockTracker.On("GetByIdentifier", ctx, "nonexistent@example.com").
			Return(nil, repository.NewRecordNotFound()).Once()

		identity, err := provider.FindIdentityByIdentifier(ctx, "nonexistent@example.com")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, portal.ErrIdentityNotFound)

		mockTracker.AssertExpectations(t)
	})

	t.Run("Invalid role", func(t *testing.T) {
		user := activeUser("password123")
		user.Role = "invalid_role"

		mockTracker.On("GetByIdentifier", ctx, "test@example.com").Return(user, nil).Once()

		identity, err := provider.FindIdentityByIdentifier(ctx, "test@example.com")

		assert.Nil(t, identity)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown or invalid role")

		mockTracker.AssertExpectations(t)
	})
}

func TestUserProviderValidation(t *testing.T) {
	mockTracker := new(MockUserTracker)

	provider := portal.NewUserProvider(mockTracker)

	validRoles := []string{
		portal.RoleAdmin,
		portal.RoleMechanic,
		portal.RoleCustomer,
	}

	for _, role := range validRoles {
		t.Run("Valid role: "+role, func(t *testing.T) {
			user := &portal.User{
				ID:       uuid.New(),
				Username: "test@example.com",
				Role:     role,
			}

			err := provider.Validator(user)
			assert.NoError(t, err)
		})
	}

	t.Run("Invalid role", func(t *testing.T) {
		user := &portal.User{
			ID:       uuid.New(),
			Username: "test@example.com",
			Role:     "invalid_role",
		}

		err := provider.Validator(user)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown or invalid role")
	})

	t.Run("Custom validator", func(t *testing.T) {
		customErr := errors.New("custom validation error")
		provider.Validator = func(u *portal.User) error {
			return customErr
		}

		user := &portal.User{
			ID:       uuid.New(),
			Username: "test@example.com",
		}

		err := provider.Validator(user)
		assert.Equal(t, customErr, err)
	})
}
