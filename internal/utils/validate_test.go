package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xelth-com/agrocampo/internal/apierror"
)

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(loginInput{Email: "a@b.co", Password: "secret1"}))

	err := Validate(loginInput{Email: "nope"})
	assert.True(t, apierror.Is(err, apierror.KindBadRequest))
	assert.Contains(t, err.Error(), "email debe ser un email válido")
	assert.Contains(t, err.Error(), "password es requerido")
}
