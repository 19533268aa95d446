package jwttoken_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "veristage/internal/jwt_token"
	dErrors "veristage/pkg/domain-errors"
)

func TestGenerateAndValidate_RoundTrip(t *testing.T) {
	svc := jwttoken.NewJWTService("test-key", "veristage", "veristage")

	applicantID := uuid.NewString()
	token, err := svc.GenerateAccessToken(jwttoken.Claims{
		ApplicantID: applicantID,
		AccountType: "individual",
		Role:        jwttoken.RoleApplicant,
		FirstName:   "Amina",
		Email:       "amina@example.test",
	}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, applicantID, claims.ApplicantID)
	assert.Equal(t, "individual", claims.AccountType)
	assert.Equal(t, jwttoken.RoleApplicant, claims.Role)
	assert.Equal(t, "Amina", claims.FirstName)
	assert.Equal(t, "amina@example.test", claims.Email)
}

func TestGenerateAccessToken_KeepsSubject(t *testing.T) {
	svc := jwttoken.NewJWTService("test-key", "veristage", "veristage")

	token, err := svc.GenerateAccessToken(jwttoken.Claims{
		Role:             jwttoken.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ops-user-7"},
	}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-user-7", claims.Subject)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := jwttoken.NewJWTService("test-key", "veristage", "veristage")

	token, err := svc.GenerateAccessToken(jwttoken.Claims{Role: jwttoken.RoleApplicant}, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_WrongKey(t *testing.T) {
	minter := jwttoken.NewJWTService("key-one", "veristage", "veristage")
	validator := jwttoken.NewJWTService("key-two", "veristage", "veristage")

	token, err := minter.GenerateAccessToken(jwttoken.Claims{Role: jwttoken.RoleApplicant}, time.Hour)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := jwttoken.NewJWTService("test-key", "veristage", "veristage")
	_, err := svc.ValidateToken("not.a.jwt")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_RejectsUnsignedAlgorithm(t *testing.T) {
	svc := jwttoken.NewJWTService("test-key", "veristage", "veristage")

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"role": "admin"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}
