// ABOUTME: HTTP middleware gating protocol endpoints behind an API key
// ABOUTME: Accepts X-API-Key or Authorization Bearer tokens, optional JWT mode

package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// APIKeyHeader is the preferred credential header. The Authorization header
// with a Bearer scheme is accepted as a fallback.
const APIKeyHeader = "X-API-Key"

// Gate validates a per-request credential against the configured secret.
// It is stateless: the only configuration is resolved once at construction.
//
// Operating modes:
//
//   - No API key and no JWT secret configured: every request passes through.
//     A caller-supplied token (if any) is still attached to the context so
//     session continuity works; otherwise AnonymousCredential is attached.
//   - API key configured: the caller token must match byte-for-byte.
//   - JWT secret configured: a Bearer token that verifies as an HS256 JWT is
//     accepted and the token's subject becomes the credential.
//
// Both secrets may be set at once; the API key comparison is tried first.
type Gate struct {
	apiKey   []byte
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewGate creates an auth gate from the resolved secrets. An empty apiKey
// with a nil verifier yields a pass-through gate; this is a documented
// operating mode and is logged as a warning, not an error.
func NewGate(apiKey string, verifier TokenVerifier, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	if apiKey == "" && verifier == nil {
		logger.Warn("no API key or JWT secret configured, gateway runs unauthenticated")
	}
	return &Gate{
		apiKey:   []byte(apiKey),
		verifier: verifier,
		logger:   logger,
	}
}

// Enabled reports whether the gate actually enforces authentication.
func (g *Gate) Enabled() bool {
	return len(g.apiKey) > 0 || g.verifier != nil
}

// Middleware wraps a handler with credential validation. On success the
// validated credential is attached to the request context; on failure the
// request is short-circuited with 401 and never reaches the next handler.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)

		if !g.Enabled() {
			if token == "" {
				token = AnonymousCredential
			}
			next.ServeHTTP(w, r.WithContext(WithCredential(r.Context(), token)))
			return
		}

		if token == "" {
			g.unauthorized(w, r, "missing credential")
			return
		}

		credential, ok := g.validate(token)
		if !ok {
			g.unauthorized(w, r, "invalid credential")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCredential(r.Context(), credential)))
	})
}

// validate checks the token against the configured secrets and returns the
// credential to attach to the request context.
func (g *Gate) validate(token string) (string, bool) {
	if len(g.apiKey) > 0 && subtle.ConstantTimeCompare([]byte(token), g.apiKey) == 1 {
		return token, true
	}

	if g.verifier != nil {
		subject, err := g.verifier.Verify(token)
		if err == nil {
			return subject, true
		}
		g.logger.Debug("JWT verification failed", "error", err)
	}

	return "", false
}

func (g *Gate) unauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	g.logger.Warn("rejected unauthenticated request",
		"path", r.URL.Path,
		"reason", reason,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"Unauthorized","message":"valid API key required"}` + "\n"))
}

// extractToken pulls the caller-supplied token from the request.
// The dedicated X-API-Key header takes precedence over Authorization: Bearer.
func extractToken(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
