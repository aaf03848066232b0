package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tleenotes/internal/errors"
	"tleenotes/internal/model"
)

func testUser() *model.User {
	return &model.User{
		ID:       uuid.New(),
		Email:    "ann@example.com",
		Username: "ann",
		Role:     model.RoleManager,
		IsActive: true,
	}
}

func TestJWTService_AccessTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 30*time.Minute)
	user := testUser()

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.Username, claims.Username)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, model.RoleManager, claims.Role)
	assert.Empty(t, claims.ID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	assert.WithinDuration(t, claims.IssuedAt.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Minute)
	issuedAt := time.Now()
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestJWTService_RejectsForeignTokens(t *testing.T) {
	svc := NewJWTService("test-secret", time.Minute)
	other := NewJWTService("other-secret", time.Minute)

	forged, err := other.GenerateAccessToken(testUser())
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": uuid.NewString()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": uuid.NewString()}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong secret": forged,
		"alg none":     noneAlg,
		"wrong alg":    hs512,
		"garbage":      "not-a-jwt",
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
		})
	}
}

func TestJWTService_RefreshToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Minute)
	user := testUser()

	tokenID, token, err := svc.GenerateRefreshToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, tokenID)

	extracted, err := svc.ExtractTokenID(token)
	require.NoError(t, err)
	assert.Equal(t, tokenID, extracted)

	access, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	_, err = svc.ExtractTokenID(access)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestJWTService_TokenTypesAreNotInterchangeable(t *testing.T) {
	svc := NewJWTService("test-secret", time.Minute)
	user := testUser()

	access, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	_, refresh, err := svc.GenerateRefreshToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)

	_, err = svc.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	claims, err = svc.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.WithinDuration(t, claims.IssuedAt.Add(RefreshTokenExpiry), claims.ExpiresAt.Time, time.Second)

	_, err = svc.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	untyped, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID.String(),
		"jti": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(untyped)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	_, err = svc.ValidateRefreshToken(untyped)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestNewJWTService_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultAccessTokenExpiry, NewJWTService("s", 0).AccessTTL())
}
