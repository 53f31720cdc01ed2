// Package auth issues and verifies the bearer tokens that identify callers,
// and carries the caller's user id through request contexts.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

const (
	issuer = "surrealtodo"

	// DevUserHeader names the caller when no verifier is configured.
	DevUserHeader = "X-User-ID"
)

var (
	ErrNoToken      = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("token secret is empty")
)

// Verifier signs and checks HS512 tokens whose subject is a user id.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: []byte(secret), now: time.Now}, nil
}

// Issue returns a token for userID that expires after ttl.
func (v *Verifier) Issue(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := v.now()
	claims := gojwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID,
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS512, claims)
	return token.SignedString(v.secret)
}

// Verify checks token and returns its subject.
func (v *Verifier) Verify(token string) (string, error) {
	parser := gojwt.NewParser(
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS512.Alg()}),
		gojwt.WithIssuer(issuer),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(v.now),
	)
	parsed, err := parser.ParseWithClaims(token, &gojwt.RegisteredClaims{}, func(*gojwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return subject, nil
}

// TokenFromRequest reads a bearer token from the Authorization header, or from
// the token query parameter for websocket clients that cannot set headers.
func TokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", ErrNoToken
		}
		return strings.TrimSpace(token), nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", ErrNoToken
}

type userKey struct{}

// WithUser returns a copy of ctx carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the caller set by [Middleware], if any.
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

// Middleware resolves the caller of every request. With a verifier, a valid
// bearer token is required. Without one the caller is taken from
// DevUserHeader and may be absent.
func Middleware(v *Verifier) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				if id := strings.TrimSpace(r.Header.Get(DevUserHeader)); id != "" {
					r = r.WithContext(WithUser(r.Context(), id))
				}
				next.ServeHTTP(w, r)
				return
			}

			token, err := TokenFromRequest(r)
			if err != nil {
				unauthorized(w, err)
				return
			}
			userID, err := v.Verify(token)
			if err != nil {
				unauthorized(w, ErrInvalidToken)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="surrealtodo"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":  err.Error(),
		"reason": "unauthenticated",
	})
}
