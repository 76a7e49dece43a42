// ABOUTME: Request context helpers for propagating the validated credential
// ABOUTME: Provides WithCredential/CredentialFromContext for downstream key derivation

package auth

import "context"

// AnonymousCredential is attached to requests when no API key is configured
// and the caller supplied no token of its own. It keeps the documented
// unauthenticated operating mode flowing through the same session-key
// derivation path as authenticated callers.
const AnonymousCredential = "anonymous"

// credentialKey is the key type for storing the credential in context.Context.
type credentialKey struct{}

// WithCredential returns a new context carrying the validated raw credential.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialKey{}, credential)
}

// CredentialFromContext retrieves the credential from the context.
// Returns the empty string if no credential was attached.
func CredentialFromContext(ctx context.Context) string {
	credential, _ := ctx.Value(credentialKey{}).(string)
	return credential
}
