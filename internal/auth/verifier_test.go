package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"storyteller-admin/internal/model"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestClaimDecoder(t *testing.T) {
	t.Parallel()

	decoder := NewClaimDecoder()
	future := time.Now().Add(time.Hour).Unix()

	t.Run("reads plain role claim", func(t *testing.T) {
		token := signToken(t, "backend-secret", jwt.MapClaims{"sub": "u-1", "role": "Admin", "email": "a@b.com", "exp": future})

		principal, err := decoder.Verify(token)
		require.NoError(t, err)
		require.Equal(t, "u-1", principal.Subject)
		require.Equal(t, model.RoleAdmin, principal.Role)
		require.Equal(t, "a@b.com", principal.Email)
		require.True(t, principal.IsStaff())
	})

	t.Run("reads dotnet role claim", func(t *testing.T) {
		token := signToken(t, "other", jwt.MapClaims{
			msRoleClaim:   "Moderator",
			msNameIDClaim: "42",
			"exp":         future,
		})

		principal, err := decoder.Verify(token)
		require.NoError(t, err)
		require.True(t, principal.IsModerator())
		require.Equal(t, "42", principal.Subject)
	})

	t.Run("takes first role of an array claim", func(t *testing.T) {
		token := signToken(t, "x", jwt.MapClaims{"role": []any{"Moderator", "User"}})

		principal, err := decoder.Verify(token)
		require.NoError(t, err)
		require.Equal(t, model.RoleModerator, principal.Role)
	})

	t.Run("accepts bearer prefix", func(t *testing.T) {
		token := signToken(t, "x", jwt.MapClaims{"role": "User"})

		principal, err := decoder.Verify("Bearer " + token)
		require.NoError(t, err)
		require.False(t, principal.IsStaff())
	})

	t.Run("rejects malformed token", func(t *testing.T) {
		_, err := decoder.Verify("not-a-jwt")
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("rejects missing token", func(t *testing.T) {
		_, err := decoder.Verify("   ")
		require.ErrorIs(t, err, model.ErrMissingToken)
	})

	t.Run("rejects token without role", func(t *testing.T) {
		token := signToken(t, "x", jwt.MapClaims{"sub": "u-1"})

		_, err := decoder.Verify(token)
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token := signToken(t, "x", jwt.MapClaims{"role": "Admin", "exp": time.Now().Add(-time.Hour).Unix()})

		_, err := decoder.Verify(token)
		require.ErrorIs(t, err, model.ErrTokenExpired)
	})
}

func TestHMACVerifier(t *testing.T) {
	t.Parallel()

	verifier, err := NewHMACVerifier("shared-secret")
	require.NoError(t, err)

	t.Run("accepts valid signature", func(t *testing.T) {
		token := signToken(t, "shared-secret", jwt.MapClaims{"role": "Admin", "exp": time.Now().Add(time.Hour).Unix()})

		principal, err := verifier.Verify(token)
		require.NoError(t, err)
		require.True(t, principal.IsAdmin())
	})

	t.Run("rejects foreign signature", func(t *testing.T) {
		token := signToken(t, "someone-else", jwt.MapClaims{"role": "Admin"})

		_, err := verifier.Verify(token)
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("reports expiry", func(t *testing.T) {
		token := signToken(t, "shared-secret", jwt.MapClaims{"role": "Admin", "exp": time.Now().Add(-time.Hour).Unix()})

		_, err := verifier.Verify(token)
		require.ErrorIs(t, err, model.ErrTokenExpired)
	})
}

func TestNewVerifier(t *testing.T) {
	t.Parallel()

	v, err := NewVerifier("")
	require.NoError(t, err)
	require.IsType(t, &ClaimDecoder{}, v)

	v, err = NewVerifier("secret")
	require.NoError(t, err)
	require.IsType(t, &HMACVerifier{}, v)
}
