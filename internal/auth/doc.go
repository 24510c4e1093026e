// Package auth provides bearer-token authentication for the CRM gateway.
//
// # Tokens
//
// Requests carry an HS256 JWT in the Authorization header. The secret is the
// one shared with the hosted auth provider, so user sessions issued there are
// accepted as-is. The "sub" claim is required; "email" and "role" are copied
// into the request's AuthContext when present.
//
// Service tokens for the admin CLI are minted with Generate and carry the
// "service_role" role.
//
// # Middleware
//
//	HTTPAuthMiddleware(verifier) // 401 unless a valid bearer token is present
//	RequireAdminHTTP()           // 403 unless the role is admin or service_role
//
// Handlers read the caller with FromContext.
package auth
