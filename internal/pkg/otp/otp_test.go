package otp

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate_SixDigits(t *testing.T) {
	re := regexp.MustCompile(`^[1-9][0-9]{5}$`)
	for i := 0; i < 200; i++ {
		code, err := Generate()
		require.NoError(t, err)
		require.Regexp(t, re, code)
	}
}

func TestEqual(t *testing.T) {
	require.True(t, Equal("123456", "123456"))
	require.False(t, Equal("123456", "123457"))
	require.False(t, Equal("123456", "12345"))
	require.False(t, Equal("123456", ""))
}
