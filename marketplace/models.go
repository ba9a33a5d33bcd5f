package marketplace

import (
	"time"

	"github.com/goliatone/go-portal"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Provider is a mechanic profile. The credential lives in the linked
// user row; the provider row carries the marketplace data.
type Provider struct {
	bun.BaseModel `bun:"table:providers,alias:prv"`

	ID              uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id"`
	UserID          uuid.UUID    `bun:"user_id,notnull,type:uuid" json:"user_id"`
	Name            string       `bun:"name,notnull" json:"name"`
	Email           string       `bun:"email,notnull,unique" json:"email"`
	Phone           string       `bun:"phone" json:"phone"`
	Address         string       `bun:"address" json:"address"`
	StateID         uuid.UUID    `bun:"state_id,nullzero,type:uuid" json:"state_id"`
	CityID          uuid.UUID    `bun:"city_id,nullzero,type:uuid" json:"city_id"`
	ServiceDistance float64      `bun:"service_distance" json:"service_distance"`
	Latitude        float64      `bun:"latitude" json:"latitude"`
	Longitude       float64      `bun:"longitude" json:"longitude"`
	Documents       []string     `bun:"documents,nullzero" json:"documents,omitempty"`
	OTP             string       `bun:"otp" json:"-"`
	OTPCreatedAt    *time.Time   `bun:"otp_created_at" json:"-"`
	IsVerified      bool         `bun:"is_verified" json:"is_verified"`
	CreatedAt       *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	User            *portal.User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	State           *State       `bun:"rel:belongs-to,join:state_id=id" json:"state,omitempty"`
	City            *City        `bun:"rel:belongs-to,join:city_id=id" json:"city,omitempty"`
}

// State is a reference row for the coverage area dropdowns.
type State struct {
	bun.BaseModel `bun:"table:states,alias:st"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Name      string     `bun:"name,notnull" json:"name"`
	Code      string     `bun:"code" json:"code,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// City belongs to a State.
type City struct {
	bun.BaseModel `bun:"table:cities,alias:cty"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Name      string     `bun:"name,notnull" json:"name"`
	StateID   uuid.UUID  `bun:"state_id,notnull,type:uuid" json:"state_id"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	State     *State     `bun:"rel:belongs-to,join:state_id=id" json:"state,omitempty"`
}
