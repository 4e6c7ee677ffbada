package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string  `json:"email"    validate:"required,email"`
	Password string  `json:"password" validate:"required"`
	Username *string `json:"username" validate:"omitempty,notblank"`
}

func TestValidate(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	assert.NoError(t, v.Validate(signup{Email: "a@x.com", Password: "secret1"}))

	err = v.Validate(signup{Email: "not-an-email"})
	require.Error(t, err)

	var fieldErrs Errors
	require.ErrorAs(t, err, &fieldErrs)
	require.Len(t, fieldErrs, 2)

	assert.Equal(t, "email", fieldErrs[0].Field)
	assert.Equal(t, "email must be a valid email address", fieldErrs[0].Message)
	assert.Equal(t, "password", fieldErrs[1].Field)
	assert.Equal(t, "password is a required field", fieldErrs[1].Message)
	assert.Contains(t, err.Error(), "password is a required field")
}

func TestValidate_NotBlank(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	blank := "   "
	err = v.Validate(signup{Email: "a@x.com", Password: "secret1", Username: &blank})

	var fieldErrs Errors
	require.ErrorAs(t, err, &fieldErrs)
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "username", fieldErrs[0].Field)
	assert.Equal(t, "username must not be blank", fieldErrs[0].Message)

	name := " alice "
	assert.NoError(t, v.Validate(signup{Email: "a@x.com", Password: "secret1", Username: &name}))
}
