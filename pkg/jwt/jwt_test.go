package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateYParse(t *testing.T) {
	token, err := Generate("secreto", "user-1", RoleManager, "joyeria-erp", 5)
	require.NoError(t, err)

	userID, role, err := Parse("secreto", token)

	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, RoleManager, role)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	token, err := Generate("secreto", "user-1", RoleAdmin, "joyeria-erp", 5)
	require.NoError(t, err)

	_, _, err = Parse("otro", token)

	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	token, err := Generate("secreto", "user-1", RoleStaff, "joyeria-erp", -1)
	require.NoError(t, err)

	_, _, err = Parse("secreto", token)

	assert.Error(t, err)
}

func TestSecretoVacio(t *testing.T) {
	_, err := Generate("", "user-1", RoleStaff, "joyeria-erp", 5)
	assert.Error(t, err)

	_, _, err = Parse("", "x.y.z")
	assert.Error(t, err)
}
