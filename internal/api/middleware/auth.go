package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/newthinker/intrinsic/internal/api/response"
	"github.com/newthinker/intrinsic/internal/core"
)

// Principal is the authenticated caller
type Principal struct {
	Subject string
	Method  string // "jwt", "api_key" or "none"
}

type principalKey struct{}

// PrincipalFrom returns the caller Auth attached to ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// AuthConfig holds the accepted credentials. With both empty, authentication
// is disabled.
type AuthConfig struct {
	JWTSecret string
	APIKey    string
}

// Auth returns middleware that accepts either an X-API-Key header or an
// HS256 bearer token whose subject comes from "sub" or "user_id".
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.JWTSecret == "" && cfg.APIKey == "" {
				next.ServeHTTP(w, withPrincipal(r, Principal{Method: "none"}))
				return
			}

			if key := r.Header.Get("X-API-Key"); key != "" && cfg.APIKey != "" {
				// Constant-time comparison to prevent timing attacks
				if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) != 1 {
					unauthorized(w, "invalid api key")
					return
				}
				next.ServeHTTP(w, withPrincipal(r, Principal{Subject: "api_key", Method: "api_key"}))
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" || cfg.JWTSecret == "" {
				unauthorized(w, "missing credentials")
				return
			}

			subject, err := ParseToken(cfg.JWTSecret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				unauthorized(w, err.Error())
				return
			}
			next.ServeHTTP(w, withPrincipal(r, Principal{Subject: subject, Method: "jwt"}))
		})
	}
}

// APIKeyAuth returns middleware that validates X-API-Key header.
// If apiKey is empty, authentication is disabled.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return Auth(AuthConfig{APIKey: apiKey})
}

// NewToken signs an HS256 token for subject valid for ttl.
func NewToken(secret, subject string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", core.WrapError(core.ErrConfigMissing, fmt.Errorf("jwt secret is empty"))
	}
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies an HS256 token and returns its subject.
func ParseToken(secret, raw string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("token expired")
		}
		return "", fmt.Errorf("invalid token")
	}

	if sub, _ := claims.GetSubject(); sub != "" {
		return sub, nil
	}
	switch id := claims["user_id"].(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case float64:
		return fmt.Sprintf("%.0f", id), nil
	}
	return "", fmt.Errorf("token has no subject")
}

func withPrincipal(r *http.Request, p Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), principalKey{}, p))
}

func unauthorized(w http.ResponseWriter, reason string) {
	response.Error(w, http.StatusUnauthorized, core.WrapError(core.ErrUnauthorized, errors.New(reason)))
}
