package auth

import (
	"net/http"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const adminTokenHeader = "X-Admin-Token"

// RequireAdmin guards administrative endpoints. The caller presents the raw
// token in the X-Admin-Token header; it is compared against the configured
// bcrypt hash. With no hash configured every request is rejected.
func RequireAdmin(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				http.Error(w, "Admin endpoints disabled", http.StatusForbidden)
				return
			}

			token := r.Header.Get(adminTokenHeader)
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
				logger.Warn("admin token mismatch")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
