package auth_test

import (
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-auction/internal/auth"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestExtractTokenFromRequest(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc.def.ghi")

	token, err := auth.ExtractTokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)
}

func TestExtractTokenMissingHeader(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)

	_, err := auth.ExtractTokenFromRequest(r)
	assert.Error(t, err)
}

func TestExtractTokenBadFormat(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Token abc")

	_, err := auth.ExtractTokenFromRequest(r)
	assert.Error(t, err)
}

func TestParseClaims(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "user-1", "role": "staff"})

	claims, err := auth.ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "staff", claims.Role)
}

func TestParseClaimsDefaultsToBidderRole(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "user-1"})

	claims, err := auth.ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "bidder", claims.Role)
}

func TestParseClaimsRequiresSubject(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"role": "staff"})

	_, err := auth.ParseClaims(token)
	assert.Error(t, err)
}
