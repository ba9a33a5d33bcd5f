package portal

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Password  string `json:"password"`
	UseHashid bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserHandler struct {
	repo RepositoryManager
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{repo: repo}
}

// Execute registers a new user inside a transaction. A taken username
// aborts the transaction before anything is written.
func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if existing, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.Username); err == nil && existing != nil {
			return ErrDuplicateUsername
		} else if err != nil && !goerrors.IsNotFound(err) {
			return StoreError(err)
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Name = event.Name
		user.Username = event.Username
		user.IsActive = true

		user.Role = RoleCustomer
		if event.Role != "" {
			role, ok := ParseRole(event.Role)
			if !ok {
				return goerrors.New("invalid role provided", goerrors.CategoryValidation)
			}
			user.Role = role
		}

		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Username); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return user, nil
}

// AccountRegistry adapts the registration handler to the
// AccountRegistrerer interface used by the HTTP controller.
type AccountRegistry struct {
	repo RepositoryManager
}

func NewAccountRegistry(repo RepositoryManager) *AccountRegistry {
	return &AccountRegistry{repo: repo}
}

func (r *AccountRegistry) RegisterUser(ctx context.Context, name, username, password string) (*User, error) {
	handler := RegisterUserHandler{repo: r.repo}
	return handler.Execute(ctx, RegisterUserMessage{
		Name:      name,
		Username:  username,
		Password:  password,
		UseHashid: true,
	})
}

var _ AccountRegistrerer = (*AccountRegistry)(nil)
