package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"notekeeper/models"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenVerifier checks a bearer token. Failure is ok == false, never an error.
type TokenVerifier interface {
	VerifyToken(token string) (models.Identity, bool)
}

// Authenticate resolves the bearer token, if any, and stores the identity in
// the request context. Requests without a valid token pass through anonymous.
func Authenticate(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found {
				logger.DebugContext(r.Context(), "auth middleware: bearer prefix missing", slog.String("request_id", GetRequestID(r.Context())))
				next.ServeHTTP(w, r)
				return
			}

			identity, ok := verifier.VerifyToken(strings.TrimSpace(tokenStr))
			if !ok {
				logger.DebugContext(r.Context(), "auth middleware: token rejected", slog.String("request_id", GetRequestID(r.Context())))
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAuth rejects requests that Authenticate left anonymous.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CallerID(r.Context()) == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="notes"`)
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ContextWithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}

// CallerID returns the authenticated account id, or "" for anonymous requests.
func CallerID(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.AccountID
}
