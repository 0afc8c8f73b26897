package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

var (
	errUnexpectedSigningMethod = errors.New("unexpected signing method")
	errMissingSubject          = errors.New("token has no subject")
)

// UserIDFromContext returns the user id verified by [UserAuth].
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// ParseUserToken verifies an HS256 access token and returns its subject.
func ParseUserToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", errUnexpectedSigningMethod, t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errMissingSubject
	}
	return sub, nil
}

// UserAuth requires a bearer token whose subject equals the {userID} route parameter.
func UserAuth(secret string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := chi.URLParam(r, "userID")
			if userID == "" {
				Fail(w, r, http.StatusBadRequest, "User ID is required")
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				Fail(w, r, http.StatusUnauthorized, "Authorization header required")
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || scheme != "Bearer" || token == "" || strings.Contains(token, " ") {
				Fail(w, r, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			if secret == "" {
				Fail(w, r, http.StatusInternalServerError, "JWT secret not configured")
				return
			}

			sub, err := ParseUserToken(token, secret)
			switch {
			case errors.Is(err, errMissingSubject):
				Fail(w, r, http.StatusUnauthorized, "Invalid token claims")
				return
			case err != nil:
				Fail(w, r, http.StatusUnauthorized, "Invalid token")
				return
			case sub != userID:
				Fail(w, r, http.StatusForbidden, "Access denied: can only access own data")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, sub)))
		})
	}
}

// AdminOnly requires the X-Admin-Key header to equal key.
func AdminOnly(key string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Admin-Key")
			switch {
			case got == "":
				Fail(w, r, http.StatusUnauthorized, "Admin authentication required")
			case key == "":
				Fail(w, r, http.StatusInternalServerError, "Admin secret key not configured")
			case subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1:
				Fail(w, r, http.StatusForbidden, "Invalid admin credentials")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
