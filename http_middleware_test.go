package portal_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	portal "github.com/goliatone/go-portal"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// handoffContext lets the access middleware write locals that a downstream
// handler can read back, the way a real router context behaves.
type handoffContext struct {
	*MockContext

	cookies map[string]string
	locals  map[any]any
	next    router.HandlerFunc
}

func newHandoffContext() *handoffContext {
	return &handoffContext{
		MockContext: new(MockContext),
		cookies:     map[string]string{},
		locals:      map[any]any{},
	}
}

func (c *handoffContext) Cookies(key string, defaultValue ...string) string {
	if v, ok := c.cookies[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *handoffContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		c.locals[key] = value[0]
		return value[0]
	}
	return c.locals[key]
}

func (c *handoffContext) Next() error {
	c.NextCalled = true
	if c.next != nil {
		return c.next(c)
	}
	return nil
}

func signedPortalToken(t *testing.T, cfg testConfig, userID uuid.UUID, role portal.UserRole, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	service := portal.NewTokenService([]byte(cfg.signingKey), cfg.tokenExpiration, cfg.issuer, cfg.audience, nil)
	token, err := service.SignClaims(&portal.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings(cfg.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:      userID.String(),
		Uname:    "mechanic@example.com",
		FullName: "Handoff Mechanic",
		UserRole: role,
	})
	require.NoError(t, err)
	return token
}

// The middleware validates the cookie token and stores structured claims in
// the router locals; session helpers and role guards inside handlers must be
// able to read them back.
func TestProtectedRouteHandsClaimsToHandler(t *testing.T) {
	cfg := newTestConfig()
	userID := uuid.New()

	httpAuth, err := portal.NewHTTPAuthenticator(new(MockAuthenticator), cfg)
	require.NoError(t, err)

	t.Run("handler resolves the session and passes the role guard", func(t *testing.T) {
		var rejected error
		mw := httpAuth.ProtectedRoute(cfg, func(c router.Context, err error) error {
			rejected = err
			return err
		})

		handlerRan := false
		handler := func(c router.Context) error {
			handlerRan = true

			session, err := portal.GetRouterSession(c, cfg.contextKey)
			require.NoError(t, err)
			assert.Equal(t, userID.String(), session.GetUserID())
			assert.Equal(t, "mechanic@example.com", session.GetUsername())
			assert.Equal(t, portal.RoleMechanic, session.GetRole())

			claims, ok := portal.GetRouterClaims(c, cfg.contextKey)
			require.True(t, ok)
			assert.Equal(t, portal.RoleMechanic, claims.Role())

			require.NoError(t, portal.RequireRouterRole(c, cfg.contextKey, portal.RoleMechanic))
			assert.ErrorIs(t, portal.RequireRouterRole(c, cfg.contextKey, portal.RoleAdmin), portal.ErrForbidden)
			return nil
		}

		ctx := newHandoffContext()
		ctx.cookies["auth-token"] = signedPortalToken(t, cfg, userID, portal.RoleMechanic, time.Hour)
		ctx.next = handler

		require.NoError(t, mw(handler)(ctx))
		assert.True(t, handlerRan)
		assert.NoError(t, rejected)
	})

	t.Run("missing cookie never reaches the handler", func(t *testing.T) {
		var rejected error
		mw := httpAuth.ProtectedRoute(cfg, func(c router.Context, err error) error {
			rejected = err
			return err
		})

		handlerRan := false
		handler := func(c router.Context) error {
			handlerRan = true
			return nil
		}

		ctx := newHandoffContext()
		ctx.next = handler

		assert.Error(t, mw(handler)(ctx))
		assert.Error(t, rejected)
		assert.False(t, handlerRan)
	})

	t.Run("expired token is rejected before the handler", func(t *testing.T) {
		var rejected error
		mw := httpAuth.ProtectedRoute(cfg, func(c router.Context, err error) error {
			rejected = err
			return err
		})

		handlerRan := false
		handler := func(c router.Context) error {
			handlerRan = true
			return nil
		}

		ctx := newHandoffContext()
		ctx.cookies["auth-token"] = signedPortalToken(t, cfg, userID, portal.RoleMechanic, -time.Minute)
		ctx.next = handler

		assert.Error(t, mw(handler)(ctx))
		assert.True(t, portal.IsTokenExpiredError(rejected))
		assert.False(t, handlerRan)
	})
}
