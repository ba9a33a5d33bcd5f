package portal_test

import (
	"context"
	"database/sql"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	portal "github.com/goliatone/go-portal"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// stubRegistryUsers overrides the credential store methods registration calls.
type stubRegistryUsers struct {
	portal.Users

	existing *portal.User
	created  []*portal.User
}

func (s *stubRegistryUsers) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*portal.User, error) {
	if s.existing != nil {
		return s.existing, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (s *stubRegistryUsers) CreateTx(ctx context.Context, tx bun.IDB, record *portal.User, criteria ...repository.InsertCriteria) (*portal.User, error) {
	s.created = append(s.created, record)
	return record, nil
}

// stubRegistryRepo runs transaction bodies inline against a zero tx.
type stubRegistryRepo struct {
	users *stubRegistryUsers
}

func (s *stubRegistryRepo) Validate() error { return nil }

func (s *stubRegistryRepo) MustValidate() {}

func (s *stubRegistryRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (s *stubRegistryRepo) Users() portal.Users { return s.users }

func TestRegisterUserHandlerRoles(t *testing.T) {
	ctx := context.Background()

	newHandler := func() (*portal.RegisterUserHandler, *stubRegistryUsers) {
		users := &stubRegistryUsers{}
		return portal.NewRegisterUserHandler(&stubRegistryRepo{users: users}), users
	}

	t.Run("empty role defaults to customer", func(t *testing.T) {
		handler, users := newHandler()

		user, err := handler.Execute(ctx, portal.RegisterUserMessage{
			Name:     "New Customer",
			Username: "customer@example.com",
			Password: "password123",
		})
		require.NoError(t, err)
		require.Len(t, users.created, 1)
		assert.Equal(t, portal.RoleCustomer, user.Role)
	})

	t.Run("a known role is kept", func(t *testing.T) {
		handler, users := newHandler()

		user, err := handler.Execute(ctx, portal.RegisterUserMessage{
			Name:     "New Mechanic",
			Username: "mechanic@example.com",
			Password: "password123",
			Role:     portal.RoleMechanic,
		})
		require.NoError(t, err)
		require.Len(t, users.created, 1)
		assert.Equal(t, portal.RoleMechanic, user.Role)
	})

	t.Run("an unknown role aborts the transaction", func(t *testing.T) {
		handler, users := newHandler()

		_, err := handler.Execute(ctx, portal.RegisterUserMessage{
			Name:     "Imposter",
			Username: "imposter@example.com",
			Password: "password123",
			Role:     "SUPERVISOR",
		})
		require.Error(t, err)

		var rich *goerrors.Error
		require.True(t, goerrors.As(err, &rich))
		assert.Equal(t, goerrors.CategoryValidation, rich.Category)
		assert.Empty(t, users.created)
	})

	t.Run("a taken username wins over role validation", func(t *testing.T) {
		users := &stubRegistryUsers{existing: &portal.User{Username: "taken@example.com"}}
		handler := portal.NewRegisterUserHandler(&stubRegistryRepo{users: users})

		_, err := handler.Execute(ctx, portal.RegisterUserMessage{
			Name:     "Second Comer",
			Username: "taken@example.com",
			Password: "password123",
			Role:     "SUPERVISOR",
		})
		assert.ErrorIs(t, err, portal.ErrDuplicateUsername)
		assert.Empty(t, users.created)
	})
}
