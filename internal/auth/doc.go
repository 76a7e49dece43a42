// Package auth provides request authentication for snowgate.
//
// # Authentication Methods
//
// The gateway accepts two credential forms on protocol endpoints:
//
//   - API Key: a shared secret compared byte-for-byte against the configured
//     value. Supplied via the X-API-Key header (preferred) or as a Bearer
//     token in the Authorization header.
//
//   - JWT Tokens: when auth.jwt_secret is configured, Bearer tokens are also
//     verified as HS256 JWTs and the "sub" claim becomes the caller identity.
//
// When neither secret is configured the gate passes every request through.
// This unauthenticated mode is deliberate (local development, trusted
// networks) and is logged as a warning at startup.
//
// # Credential Propagation
//
// The gate never hands the raw secret to handlers directly; it attaches the
// validated credential to the request context via WithCredential. Downstream
// code derives session keys from it with a one-way digest, so the session
// table never stores the secret verbatim.
package auth
