package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gym-agenda-api/internal/models"
)

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() models.JWTClaims {
	return models.JWTClaims{
		UserID:         "user-1",
		Role:           models.RoleInstructor,
		OrganizationID: "org-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "gym-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestTokenVerifierValidateToken(t *testing.T) {
	verifier := NewTokenVerifier("secret", "gym-auth")

	claims, err := verifier.ValidateToken(signToken(t, jwt.SigningMethodHS256, "secret", validClaims()))
	require.NoError(t, err)
	assert.Equal(t, models.Requester{UserID: "user-1", Role: models.RoleInstructor, OrganizationID: "org-1"}, claims.Requester())
}

func TestTokenVerifierValidateToken_Rejections(t *testing.T) {
	verifier := NewTokenVerifier("secret", "gym-auth")

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	foreign := validClaims()
	foreign.Issuer = "someone-else"

	anonymous := validClaims()
	anonymous.UserID = ""

	cases := map[string]string{
		"wrong secret":  signToken(t, jwt.SigningMethodHS256, "other", validClaims()),
		"wrong issuer":  signToken(t, jwt.SigningMethodHS256, "secret", foreign),
		"expired":       signToken(t, jwt.SigningMethodHS256, "secret", expired),
		"other method":  signToken(t, jwt.SigningMethodHS512, "secret", validClaims()),
		"missing user":  signToken(t, jwt.SigningMethodHS256, "secret", anonymous),
		"not a token":   "abc.def",
		"empty payload": "",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := verifier.ValidateToken(token)
			requireAppError(t, err, "UNAUTHORIZED")
		})
	}
}

func TestTokenVerifierValidateToken_NoIssuerConfigured(t *testing.T) {
	verifier := NewTokenVerifier("secret", "")
	claims := validClaims()
	claims.Issuer = "anything"

	_, err := verifier.ValidateToken(signToken(t, jwt.SigningMethodHS256, "secret", claims))
	require.NoError(t, err)
}
