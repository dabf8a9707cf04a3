package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateValidationErrors(t *testing.T) {
	validate, translator := NewValidator()
	InitValidators(validate, translator)

	type form struct {
		Name  string `json:"name" validate:"required"`
		Email string `json:"email" validate:"omitempty,email"`
		Skip  string `json:"-" validate:"required"`
	}

	err := TranslateValidationErrors(validate.Struct(form{Email: "nope", Skip: "x"}), translator, "invalid form")

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "invalid form", vErr.Error())
	assert.Equal(t, map[string]string{
		"name":  "this field is required",
		"email": "email must be a valid email address",
	}, vErr.FieldsMap())

	other := errors.New("boom")
	assert.Equal(t, other, TranslateValidationErrors(other, translator, "invalid form"))
	assert.Nil(t, TranslateValidationErrors(nil, translator, "invalid form"))
}

func TestIsShutdown(t *testing.T) {
	assert.True(t, IsShutdown(errors.Wrap(NewShutdownError("integrity issue"), "serving")))
	assert.False(t, IsShutdown(errors.New("boom")))
}
