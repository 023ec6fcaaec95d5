package mw

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// tokenFromRequest extracts the admin token from Authorization: Bearer,
// falling back to the X-API-Key header.
func tokenFromRequest(h http.Header) string {
	const bearerPrefix = "Bearer "
	if v := h.Get("Authorization"); strings.HasPrefix(v, bearerPrefix) {
		return v[len(bearerPrefix):]
	}
	return h.Get("X-API-Key")
}

func tokenMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// TokenAuth returns a Chi middleware that requires the static admin token
// on every request. An empty token disables the check.
func TokenAuth(logger *slog.Logger, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := tokenFromRequest(r.Header)
			if got == "" {
				logger.Warn("API token missing", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: API token required", http.StatusUnauthorized)
				return
			}
			if !tokenMatches(got, token) {
				logger.Warn("Invalid API token used", "key_prefix", keyPrefix(got), "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: invalid API token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HumaTokenAuth returns a huma middleware that enforces the admin token on
// operations registered with the security scheme. Public operations pass.
func HumaTokenAuth(api huma.API, logger *slog.Logger, token string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if token == "" || !operationRequiresAuth(ctx.Operation()) {
			next(ctx)
			return
		}
		got := ctx.Header("Authorization")
		if strings.HasPrefix(got, "Bearer ") {
			got = got[len("Bearer "):]
		} else {
			got = ctx.Header("X-API-Key")
		}
		if got == "" || !tokenMatches(got, token) {
			logger.Warn("Rejected admin API request", "path", ctx.URL().Path, "key_prefix", keyPrefix(got))
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "Unauthorized: valid API token required")
			return
		}
		next(ctx)
	}
}

func operationRequiresAuth(op *huma.Operation) bool {
	if op == nil {
		return false
	}
	for _, req := range op.Security {
		if _, ok := req[SecurityScheme]; ok {
			return true
		}
	}
	return false
}

// keyPrefix returns the first 4 characters of a key for safe logging.
func keyPrefix(key string) string {
	if len(key) >= 4 {
		return key[:4]
	}
	return key
}
