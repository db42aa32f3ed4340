package jwtoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
)

var jwtService = New(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)
var operatorID = id.OperatorID("op-7")
var role = "safety_operator"
var expiresIn = time.Hour

func Test_GenerateOperatorToken(t *testing.T) {
	token, err := jwtService.GenerateOperatorToken(operatorID, role, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, operatorID.String(), claims.OperatorID)
	assert.Equal(t, role, claims.Role)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateOperatorToken(operatorID, role, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := New("other-signing-key", "test-issuer", "test-audience")
	token, err := other.GenerateOperatorToken(operatorID, role, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}
