package session

import (
	"fmt"
	"net/http"

	herrors "github.com/jmylchreest/hapd/internal/errors"
)

// RequireVerified rejects requests on connections that have not completed
// pair-verify with 470 and an insufficient privileges status body.
func RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromContext(r.Context())
		if !ok || !s.IsVerified() {
			w.Header().Set("Content-Type", "application/hap+json")
			w.WriteHeader(herrors.StatusConnectionAuthorizationRequired)
			fmt.Fprintf(w, `{"status":%d}`, herrors.HAPStatusInsufficientPrivileges)
			return
		}
		next.ServeHTTP(w, r)
	})
}
