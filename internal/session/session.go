// Package session issues and verifies the signed per-browser-session tokens used
// as rate-limit client identifiers.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	IssuerName = "reviewgen"
	DefaultTTL = 12 * time.Hour
)

var ErrInvalidToken = errors.New("session: invalid token")

// Token is a freshly issued session.
type Token struct {
	Value     string
	ClientID  string
	ExpiresAt time.Time
}

type claims struct {
	jwt.RegisteredClaims
	StoreID string `json:"store,omitempty"`
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an HS256 issuer. A non-positive ttl uses DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if len(secret) < 16 {
		return nil, errors.New("session: secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token whose subject is "<storeID>-<uuid>".
func (i *Issuer) Issue(storeID string) (Token, error) {
	now := i.now()
	clientID := storeID + "-" + uuid.NewString()
	exp := now.Add(i.ttl)

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    IssuerName,
			Subject:   clientID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		StoreID: storeID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign session token: %w", err)
	}
	return Token{Value: signed, ClientID: clientID, ExpiresAt: exp}, nil
}

// Verify checks signature, issuer and expiry and returns the client id.
func (i *Issuer) Verify(value string) (string, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(value, c, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return i.secret, nil
	},
		jwt.WithIssuer(IssuerName),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return c.Subject, nil
}
