// Package auth binds HTTP requests to scan sessions.
//
// With a JWT secret configured, every request under /api must carry a bearer
// token whose sid claim names the session. Without one, the session is taken
// from the X-Session-ID header.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// SessionHeader selects the session when authentication is disabled
	SessionHeader = "X-Session-ID"
	// DefaultSession is used when no session is named
	DefaultSession = "default"

	issuer = "menu-layout-service"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt secret not configured")
)

type contextKey string

const (
	claimsKey  contextKey = "claims"
	sessionKey contextKey = "session"
)

// Claims carried by a session token
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Authenticator issues and checks session tokens
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	public map[string]bool
}

// NewAuthenticator creates an authenticator. An empty secret disables token
// checks.
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		secret: []byte(secret),
		ttl:    ttl,
		public: map[string]bool{
			"/health":      true,
			"/api/session": true,
		},
	}
}

// Enabled reports whether tokens are required
func (a *Authenticator) Enabled() bool { return len(a.secret) > 0 }

// GenerateToken signs a token for the session. An empty sessionID gets a
// fresh random one.
func (a *Authenticator) GenerateToken(sessionID string) (string, *Claims, error) {
	if !a.Enabled() {
		return "", nil, ErrNoSecret
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	now := time.Now()
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken parses and verifies a signed token
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	if !a.Enabled() {
		return nil, ErrNoSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Middleware resolves the session of each request and stores it in the
// request context. It fits mux.Router.Use.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.public[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		if !a.Enabled() {
			key := strings.TrimSpace(r.Header.Get(SessionHeader))
			if key == "" {
				key = DefaultSession
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), key)))
			return
		}

		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			unauthorized(w, ErrMissingToken)
			return
		}

		claims, err := a.ValidateToken(strings.TrimSpace(tokenString))
		if err != nil {
			unauthorized(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(WithSession(ctx, claims.SessionID)))
	})
}

// WithSession returns a context naming the session
func WithSession(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKey, key)
}

// SessionFromContext returns the session resolved by the middleware
func SessionFromContext(ctx context.Context) string {
	if key, ok := ctx.Value(sessionKey).(string); ok && key != "" {
		return key
	}
	return DefaultSession
}

// GetClaimsFromContext returns the verified token claims of the request
func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	if !ok {
		return nil, ErrMissingToken
	}
	return claims, nil
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   "unauthorized: " + err.Error(),
	})
}
