package auth

import (
	"log/slog"
	"net/http"
)

// BearerToken extracts the token from the Authorization header, falling
// back to the "token" query parameter for clients that cannot set headers
// on long-lived stream requests.
func BearerToken(r *http.Request) string {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}
	return tokenString
}

// Middleware rejects requests without a valid token and stores the verified
// claims in the request context for handlers to read.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := BearerToken(r)
		if tokenString == "" {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		claims, err := v.ValidateToken(tokenString)
		if err != nil {
			slog.Debug("token rejected", "err", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}
