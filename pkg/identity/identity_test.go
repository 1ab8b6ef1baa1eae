package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/japaniel/goodthings/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func TestVerifierRoundTrip(t *testing.T) {
	v := NewVerifier(testSecret, "")
	id := uuid.New()

	token, err := v.Sign(id, time.Hour)
	require.NoError(t, err)

	got, err := v.UserID(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestVerifierRejects(t *testing.T) {
	v := NewVerifier(testSecret, "")
	id := uuid.New()

	expired := NewVerifier(testSecret, "")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Sign(id, time.Hour)
	require.NoError(t, err)

	wrongKey, err := NewVerifier("another-secret-another-secret-1234", "").Sign(id, time.Hour)
	require.NoError(t, err)

	wrongAud, err := NewVerifier(testSecret, "anon").Sign(id, time.Hour)
	require.NoError(t, err)

	notUUID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "someone",
		Audience:  jwt.ClaimStrings{DefaultAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]string{
		"empty":          "",
		"expired":        old,
		"wrong key":      wrongKey,
		"wrong audience": wrongAud,
		"subject":        notUUID,
		"garbage":        "a.b.c",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.UserID(token)
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	id := uuid.New()
	token, err := NewVerifier(testSecret, "").Sign(id, time.Hour)
	require.NoError(t, err)

	got, err := Resolve(Source{UserID: "explicit", AccessToken: token})
	require.NoError(t, err)
	assert.Equal(t, "explicit", got)

	got, err = Resolve(Source{})
	require.NoError(t, err)
	assert.Equal(t, LocalUser, got)

	got, err = Resolve(Source{AccessToken: token, JWTSecret: testSecret})
	require.NoError(t, err)
	assert.Equal(t, id.String(), got)

	_, err = Resolve(Source{AccessToken: token})
	require.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Contains(t, err.Error(), "auth.jwt_secret")

	_, err = Resolve(Source{AccessToken: token, JWTSecret: "wrong-wrong-wrong-wrong-wrong-wrong"})
	require.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Contains(t, err.Error(), "auth.access_token")
}
