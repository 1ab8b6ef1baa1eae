// Package identity resolves which user a run belongs to.
package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/japaniel/goodthings/pkg/apperr"
)

// LocalUser owns every row written when no account is configured.
const LocalUser = "local"

// DefaultAudience is the audience Supabase puts on signed-in user tokens.
const DefaultAudience = "authenticated"

// Verifier validates Supabase access tokens signed with the project's HS256
// JWT secret.
type Verifier struct {
	secret   []byte
	audience string
	now      func() time.Time
}

// NewVerifier creates a verifier. An empty audience means DefaultAudience.
func NewVerifier(secret, audience string) *Verifier {
	if audience == "" {
		audience = DefaultAudience
	}
	return &Verifier{secret: []byte(secret), audience: audience, now: time.Now}
}

// UserID validates token and returns its subject, which must be a UUID.
func (v *Verifier) UserID(token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, fmt.Errorf("token is empty")
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return uuid.Nil, fmt.Errorf("invalid token claims")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject UUID: %w", err)
	}
	return id, nil
}

// Sign issues a token for userID. It mirrors what Supabase hands out and is
// used for local setups and tests.
func (v *Verifier) Sign(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := v.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Audience:  jwt.ClaimStrings{v.audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Source is where a user id can come from.
type Source struct {
	UserID      string // explicit id, wins when set
	AccessToken string // Supabase access token
	JWTSecret   string
	Audience    string
}

// Resolve picks the user id for a run: the explicit id, else the subject of
// a verified access token, else LocalUser. Problems are configuration errors.
func Resolve(src Source) (string, error) {
	if id := strings.TrimSpace(src.UserID); id != "" {
		return id, nil
	}
	if src.AccessToken == "" {
		return LocalUser, nil
	}
	if src.JWTSecret == "" {
		return "", apperr.Configurationf("auth.jwt_secret", "an access token is set but no jwt secret to verify it")
	}
	id, err := NewVerifier(src.JWTSecret, src.Audience).UserID(src.AccessToken)
	if err != nil {
		return "", apperr.Configurationf("auth.access_token", "%v", err)
	}
	return id.String(), nil
}
