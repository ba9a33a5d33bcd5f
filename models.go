package portal

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleCustomer is the default role assigned at registration
	RoleCustomer UserRole = "CUSTOMER"
	// RoleMechanic is the marketplace provider role
	RoleMechanic UserRole = "MECHANIC"
	// RoleAdmin can manage every user's files and the reference data
	RoleAdmin UserRole = "ADMIN"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Name           string     `bun:"name,notnull" json:"name,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	IsActive       bool       `bun:"is_active" json:"is_active"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

var _ Identity = (*userIdentity)(nil)

type userIdentity struct {
	id       string
	username string
	name     string
	role     string
}

func (u userIdentity) ID() string       { return u.id }
func (u userIdentity) Username() string { return u.username }
func (u userIdentity) Name() string     { return u.name }
func (u userIdentity) Role() string     { return u.role }

// IdentityFromUser adapts a stored user row into the Identity a token is
// minted from. The token is a snapshot: later role or active-flag changes do
// not propagate until a new token is issued.
func IdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return userIdentity{
		id:       user.ID.String(),
		username: user.Username,
		name:     user.Name,
		role:     user.Role,
	}
}

// IdentitySummary is the wire shape we return after login or registration.
// It never carries the password hash.
type IdentitySummary struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// SummaryFromIdentity builds the response payload for an identity
func SummaryFromIdentity(identity Identity) IdentitySummary {
	return IdentitySummary{
		ID:       identity.ID(),
		Name:     identity.Name(),
		Username: identity.Username(),
		Role:     identity.Role(),
	}
}
