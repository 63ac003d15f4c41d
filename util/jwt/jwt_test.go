package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, token, secret string) (*jwtlib.Token, error) {
	t.Helper()
	return jwtlib.Parse(token, func(*jwtlib.Token) (any, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithExpirationRequired())
}

func TestIssue_Claims(t *testing.T) {
	tok, err := Issue("test-secret", 42, true, 1)
	require.NoError(t, err)

	parsed, err := parse(t, tok, "test-secret")
	require.NoError(t, err)
	claims := parsed.Claims.(jwtlib.MapClaims)
	require.EqualValues(t, 42, claims["sub"])
	require.Equal(t, true, claims["staff"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp.Time, time.Minute)
}

func TestIssue_WrongSecretRejected(t *testing.T) {
	tok, err := Issue("test-secret", 42, false, 1)
	require.NoError(t, err)

	_, err = parse(t, tok, "other-secret")
	require.Error(t, err)
}

func TestIssue_ExpiredRejected(t *testing.T) {
	tok, err := Issue("test-secret", 42, false, -1)
	require.NoError(t, err)

	_, err = parse(t, tok, "test-secret")
	require.Error(t, err)
}
