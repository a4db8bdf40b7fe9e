// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNotPresenter is returned when a token is valid but does not control the presentation.
var ErrNotPresenter = errors.New("token does not grant presenter access")

const presenterScope = "presenter"

// Issuer signs and verifies presenter tokens with an ed25519 key pair.
type Issuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	// ttl of 0 means tokens never expire.
	ttl time.Duration
	now func() time.Time
}

// NewIssuer generates a fresh key pair at runtime. Tokens do not survive a restart, which
// matches the lifetime of the in-memory presentations they control.
func NewIssuer(ttl time.Duration) (*Issuer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Issuer{privateKey: priv, publicKey: pub, ttl: ttl, now: time.Now}, nil
}

// CreatePresenterToken creates a signed JWT with "sub" = presentation id.
func (i *Issuer) CreatePresenterToken(presentationID uuid.UUID) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub":   presentationID.String(),
		"scope": presenterScope,
		"iat":   now.Unix(),
	}
	if i.ttl > 0 {
		claims["exp"] = now.Add(i.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(i.privateKey)
}

// AuthenticatePresenter verifies a token and returns the presentation id it controls.
func (i *Issuer) AuthenticatePresenter(tokenString string) (uuid.UUID, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.publicKey, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return uuid.Nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return uuid.Nil, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid jwt claims")
	}
	if scope, _ := claims["scope"].(string); scope != presenterScope {
		return uuid.Nil, ErrNotPresenter
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing sub in jwt")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid sub in jwt: %w", err)
	}
	return id, nil
}

// IsPresenterOf reports whether token controls the given presentation.
func (i *Issuer) IsPresenterOf(tokenString string, presentationID uuid.UUID) bool {
	if tokenString == "" {
		return false
	}
	id, err := i.AuthenticatePresenter(tokenString)
	return err == nil && id == presentationID
}
