package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-live/backend/internal/models"
)

func TestGenerateValidate(t *testing.T) {
	s := NewJWTService("secret", time.Hour)
	id := uuid.New()
	token, err := s.Generate(id, "Ann", models.RoleModerator)
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "Ann", claims.Name)
	assert.Equal(t, models.RoleModerator, claims.Role)
}

func TestValidateRejects(t *testing.T) {
	s := NewJWTService("secret", time.Hour)
	other := NewJWTService("other", time.Hour)
	token, err := other.Generate(uuid.New(), "Bob", models.RoleUser)
	require.NoError(t, err)

	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           uuid.New(),
		Role:             models.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = s.Validate(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	bogusRole := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: uuid.New(), Role: "root"})
	signed, err = bogusRole.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = s.Validate(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateDefaultsRole(t *testing.T) {
	s := NewJWTService("secret", time.Hour)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: uuid.New()})
	signed, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)
	claims, err := s.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, claims.Role)
}
