package middleware

import (
	"net/http"

	"amp/pkg/auth"
	apperrors "amp/pkg/errors"
)

// Authenticate enforces the optional bearer-auth seam (AUTH_REQUIRED=true).
// When AUTH_REQUIRED is false, this middleware is never mounted; when true,
// every request must present a valid HS256 bearer token, grounded on the
// sibling teacher's JWTService bearer-extraction style.
func Authenticate(validator *auth.JWTValidator, writeError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := validator.ValidateHeader(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, r, apperrors.NewValidation("authentication failed: "+err.Error()))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}
