// internal/pkg/auth/jwt_test.go
package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/bakery-backend/internal/config"
)

func testConfig(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "bakery-test"
	cfg.JWT.Secret = secret
	cfg.JWT.AccessTokenExpiry = time.Hour
	return cfg
}

func TestAccessTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager(testConfig("0123456789abcdef0123456789abcdef"))

	token, err := manager.GenerateAccessToken(42, "Aye Chan")
	require.NoError(t, err)

	claims, err := manager.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "Aye Chan", claims.Name)
	assert.Equal(t, "access", claims.TokenType)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager(testConfig("0123456789abcdef0123456789abcdef")).
		GenerateAccessToken(1, "staff")
	require.NoError(t, err)

	_, err = NewJWTManager(testConfig("ffffffffffffffffffffffffffffffff")).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	cfg := testConfig("0123456789abcdef0123456789abcdef")
	cfg.JWT.AccessTokenExpiry = -time.Minute
	manager := NewJWTManager(cfg)

	token, err := manager.GenerateAccessToken(1, "staff")
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", ExtractTokenFromHeader("Bearer abc.def.ghi"))
	assert.Equal(t, "", ExtractTokenFromHeader("abc.def.ghi"))
	assert.Equal(t, "", ExtractTokenFromHeader("Bearer"))
	assert.Equal(t, "", ExtractTokenFromHeader(""))
}
