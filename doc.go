// Package portal provides the authentication and authorization core for a
// two surface web application: a cookie based file portal and a bearer token
// marketplace API.
//
// Identity and sessions:
//   - Users carry a single role (CUSTOMER, MECHANIC, ADMIN) and an active
//     flag. Tokens are snapshots; role or flag changes apply on next issue.
//   - Auther mints and validates HS256 JWTs through TokenService. Each
//     surface gets its own Auther with its own TTL while sharing signing
//     material, so a portal cookie and an API bearer token validate against
//     the same middleware.
//
// HTTP layer:
//   - RouteAuthenticator manages the auth cookie lifecycle and builds the
//     access middleware from middleware/jwtware. API surfaces answer 401
//     JSON; client surfaces redirect to login and clear stale cookies.
//   - Role enforcement happens in handlers via RequireRouterRole against the
//     claims the middleware stores in the router locals.
//
// Subpackages storage and marketplace build on this core: storage owns the
// per user S3 backed file store, marketplace owns provider onboarding with
// OTP email verification.
package portal
