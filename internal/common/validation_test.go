package common

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumeric(t *testing.T) {
	for _, ok := range []string{"0", "12", "-3", "45.50", " 7 "} {
		require.Nil(t, Numeric("precio", ok), ok)
	}
	for _, bad := range []string{"", "NaN", "nan", "Inf", "-Inf", "Infinity", "1e3", "12,5", "consultar"} {
		require.NotNil(t, Numeric("precio", bad), bad)
	}
}

func TestValidator_Rules(t *testing.T) {
	re := regexp.MustCompile(`^[a-z]+$`)
	v := NewValidator().
		Field("lang", "spa", Required, MaxLength(3), Matches(re, "bad")).
		Field("text", "", MaxLength(1))
	require.False(t, v.HasErrors())
	require.NoError(t, ValidateAndReturnError(v))

	v = NewValidator().
		Field("lang", " ", Required).
		Field("text", "abcd", MaxLength(3)).
		Field("code", "SPA", Matches(re, "lowercase only"))
	require.Len(t, v.Errors(), 3)

	err := ValidateAndReturnError(v)
	require.Equal(t, CodeInvalidInput, CodeOf(err))
	require.True(t, errors.Is(err, ErrValidation))
	require.Contains(t, err.Error(), "lowercase only")
}
