package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/cms"
)

// TokenIssuer signs HS256 bearer tokens for logged in users and verifies
// them on protected routes.
type TokenIssuer struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
}

// NewTokenIssuer returns an issuer signing with secret. Tokens expire after ttl.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenIssuer{
		auth: jwtauth.New("HS256", []byte(secret), nil),
		ttl:  ttl,
	}, nil
}

// Issue returns a signed token carrying the user's id, username and role
func (t *TokenIssuer) Issue(user *cms.UserProjection) (string, error) {
	claims := map[string]interface{}{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, t.ttl)

	_, token, err := t.auth.Encode(claims)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Verifier finds a bearer token in the Authorization header or jwt cookie
// and stores the verification result on the request context.
func (t *TokenIssuer) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verifier(t.auth)
}

// Authenticator rejects requests whose token is missing, invalid or expired.
// It must run after Verifier.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, loginFailure{Success: false, Message: "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
