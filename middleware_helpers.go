package portal

import (
	"context"

	"github.com/goliatone/go-portal/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use the
// root package helpers directly.
type ValidationListener = jwtware.ValidationListener

// ContextEnricherAdapter adapts jwtware.AuthClaims to AuthClaims and stores
// them in the standard context for downstream guard usage.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}

	return WithClaimsContext(c, authClaims)
}

// NewTokenValidator adapts a TokenService to the jwtware validation seam.
// Validated requests then carry *JWTClaims in the router locals, which is
// what GetRouterSession and the role guards expect to read back.
func NewTokenValidator(svc TokenService) jwtware.TokenValidator {
	return serviceTokenValidator{svc: svc}
}

type serviceTokenValidator struct {
	svc TokenService
}

func (v serviceTokenValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.svc.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe,
// reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
