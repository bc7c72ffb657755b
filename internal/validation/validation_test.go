package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/fullstack-starter/internal/apperror"
)

type signupForm struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=72,bcryptlen,password"`
	Name     string  `json:"name" validate:"required,max=5"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(signupForm{Email: "a@b.co", Password: "secret123", Name: "Ann"})
	assert.NoError(t, err)
}

func TestStruct_ReportsEveryField(t *testing.T) {
	role := "root"
	err := Struct(signupForm{Email: "nope", Password: "short", Role: &role})
	require.Error(t, err)

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, "must be a valid email address", appErr.Fields["email"])
	assert.Equal(t, "must be at least 8 characters", appErr.Fields["password"])
	assert.Equal(t, "is required", appErr.Fields["name"])
	assert.Equal(t, "must be one of: user, admin", appErr.Fields["role"])
}

func TestStruct_PasswordRule(t *testing.T) {
	err := Struct(signupForm{Email: "a@b.co", Password: "onlyletters", Name: "Ann"})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, "must contain at least one letter and one number", appErr.Fields["password"])

	err = Struct(signupForm{Email: "a@b.co", Password: "12345678", Name: "Ann"})
	require.Error(t, err)
}

func TestStruct_MaxLength(t *testing.T) {
	err := Struct(signupForm{Email: "a@b.co", Password: "secret123", Name: "Annabelle"})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, "must be at most 5 characters", appErr.Fields["name"])
}

func TestStruct_PasswordByteLength(t *testing.T) {
	// 41 characters but 81 bytes
	long := strings.Repeat("é", 40) + "1"
	err := Struct(signupForm{Email: "a@b.co", Password: long, Name: "Ann"})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, "must be at most 72 bytes", appErr.Fields["password"])

	ascii := strings.Repeat("a", 71) + "1"
	assert.NoError(t, Struct(signupForm{Email: "a@b.co", Password: ascii, Name: "Ann"}))
}
