package principal

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultIssuer = "helpdesk"

// Claims is the token payload. The subject is the principal id.
type Claims struct {
	jwt.RegisteredClaims
	Email        string `json:"email,omitempty"`
	Organization string `json:"org,omitempty"`
}

// Tokens issues and verifies principal tokens.
type Tokens struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokensOption configures Tokens.
type TokensOption func(*Tokens)

// WithIssuer sets the iss claim issued and required on verify.
func WithIssuer(iss string) TokensOption {
	return func(t *Tokens) {
		if iss != "" {
			t.issuer = iss
		}
	}
}

// WithTTL sets the lifetime of issued tokens. Zero means no expiry.
func WithTTL(d time.Duration) TokensOption {
	return func(t *Tokens) { t.ttl = d }
}

// NewTokens returns a token service signing with key.
func NewTokens(key []byte, opts ...TokensOption) (*Tokens, error) {
	if len(key) == 0 {
		return nil, ErrMissingSigningKey
	}
	t := &Tokens{key: key, issuer: defaultIssuer, ttl: 24 * time.Hour, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue signs a token for p.
func (t *Tokens) Issue(p Principal) (string, error) {
	if p.ID == uuid.Nil {
		return "", ErrInvalidSubject
	}

	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  p.ID.String(),
			Issuer:   t.issuer,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
		Email: p.Email,
	}
	if t.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	}
	if p.HomeOrganizationID != uuid.Nil {
		claims.Organization = p.HomeOrganizationID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of token and returns the
// principal it names.
func (t *Tokens) Verify(token string) (*Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return nil, ErrInvalidSubject
	}

	p := &Principal{ID: id, Email: claims.Email}
	if claims.Organization != "" {
		org, err := uuid.Parse(claims.Organization)
		if err != nil {
			return nil, fmt.Errorf("%w: org claim", ErrInvalidToken)
		}
		p.HomeOrganizationID = org
	}
	return p, nil
}
