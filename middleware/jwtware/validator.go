package jwtware

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// keyfuncValidator is the fallback TokenValidator used when the caller
// only provides signing keys. It verifies the signature and standard
// time claims, then exposes the map claims through the AuthClaims view.
type keyfuncValidator struct {
	keyFunc jwt.Keyfunc
}

func (v keyfuncValidator) Validate(tokenString string) (AuthClaims, error) {
	token, err := jwt.Parse(tokenString, v.keyFunc)
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return mapClaims{claims: claims}, nil
}

// roleRank mirrors the application role hierarchy. Unknown roles rank
// below every known one.
var roleRank = map[string]int{
	"CUSTOMER": 0,
	"MECHANIC": 1,
	"ADMIN":    2,
}

// mapClaims adapts generic JWT map claims to the AuthClaims view.
type mapClaims struct {
	claims jwt.MapClaims
}

func (m mapClaims) str(key string) string {
	if v, ok := m.claims[key].(string); ok {
		return v
	}
	return ""
}

func (m mapClaims) Subject() string {
	return m.str("sub")
}

func (m mapClaims) UserID() string {
	if uid := m.str("uid"); uid != "" {
		return uid
	}
	return m.str("sub")
}

func (m mapClaims) Role() string {
	return m.str("role")
}

func (m mapClaims) HasRole(role string) bool {
	return strings.EqualFold(m.Role(), role)
}

func (m mapClaims) IsAtLeast(minRole string) bool {
	have, ok := roleRank[strings.ToUpper(m.Role())]
	if !ok {
		return false
	}
	want, ok := roleRank[strings.ToUpper(minRole)]
	if !ok {
		return false
	}
	return have >= want
}
