package portal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

// SessionObject is the decoded, verified view of a session token.
type SessionObject struct {
	UserID         string     `json:"user_id,omitempty"`
	Username       string     `json:"username,omitempty"`
	Name           string     `json:"name,omitempty"`
	Role           string     `json:"role,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetUsername() string {
	return s.Username
}

func (s *SessionObject) GetName() string {
	return s.Name
}

func (s *SessionObject) GetRole() string {
	return s.Role
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s username=%s role=%s iss=%s iat=%s",
		s.UserID,
		s.Username,
		s.Role,
		s.Issuer,
		issuedAt,
	)
}

// SessionFromAuthClaims creates a SessionObject from verified AuthClaims
func SessionFromAuthClaims(claims AuthClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToMapClaims
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	return &SessionObject{
		UserID:         claims.UserID(),
		Username:       claims.Username(),
		Name:           claims.Name(),
		Role:           claims.Role(),
		Issuer:         issuerFromClaims(claims),
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}, nil
}

func issuerFromClaims(claims AuthClaims) string {
	if jwtClaims, ok := claims.(*JWTClaims); ok {
		if jwtClaims.RegisteredClaims.Issuer != "" {
			return jwtClaims.RegisteredClaims.Issuer
		}
	}
	return claims.Subject()
}

// sessionFromMapClaims supports tokens verified by the keyfunc path, where
// the middleware stores a *jwt.Token with generic map claims.
func sessionFromMapClaims(claims map[string]any) (*SessionObject, error) {
	session := &SessionObject{}

	if v, ok := claims["uid"].(string); ok {
		session.UserID = v
	} else if v, ok := claims["sub"].(string); ok {
		session.UserID = v
	}

	if v, ok := claims["username"].(string); ok {
		session.Username = v
	}

	if v, ok := claims["name"].(string); ok {
		session.Name = v
	}

	if v, ok := claims["role"].(string); ok {
		session.Role = v
	}

	if v, ok := claims["iss"].(string); ok {
		session.Issuer = v
	}

	if v, ok := claims["iat"].(float64); ok {
		iat := time.Unix(int64(v), 0)
		session.IssuedAt = &iat
	}

	if v, ok := claims["exp"].(float64); ok {
		exp := time.Unix(int64(v), 0)
		session.ExpirationDate = &exp
	}

	if session.UserID == "" {
		return nil, ErrUnableToMapClaims
	}

	return session, nil
}
