package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mailmerge/internal/auth"
	"github.com/mailmerge/internal/model"
)

const (
	FunctionKeyHeader = "x-functions-key"
	FunctionKeyQuery  = "code"
)

type contextKey string

const contextKeyFunctionKey contextKey = "functionKey"

// KeyAuthenticator resolves a presented key.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*model.FunctionKey, error)
}

// FunctionKey middleware requires a valid key in the x-functions-key header
// or the code query parameter and stores it in the request context.
// Missing or invalid keys get 401.
func FunctionKey(keys KeyAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(FunctionKeyHeader)
			if raw == "" {
				raw = r.URL.Query().Get(FunctionKeyQuery)
			}
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "missing function key")
				return
			}

			key, err := keys.Authenticate(r.Context(), raw)
			if errors.Is(err, auth.ErrInvalidKey) {
				writeError(w, http.StatusUnauthorized, "invalid function key")
				return
			} else if err != nil {
				slog.Error("functionkey: authenticate failed", "err", err)
				writeError(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyFunctionKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope returns middleware that allows only keys whose scope covers
// scope. Returns 403 Forbidden otherwise.
func RequireScope(scope model.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := KeyFromContext(r.Context())
			if key == nil || !key.Scope.Allows(scope) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// KeyFromContext returns the authenticated key, or nil for anonymous requests.
func KeyFromContext(ctx context.Context) *model.FunctionKey {
	v, _ := ctx.Value(contextKeyFunctionKey).(*model.FunctionKey)
	return v
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
