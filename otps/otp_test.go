package otps_test

import (
	"testing"

	"github.com/jrsteele09/go-auth-session/otps"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := otps.GenerateCode(6)
	require.NoError(t, err)
	require.Regexp(t, `^\d{6}$`, code)
}

func TestRequest_Matches(t *testing.T) {
	hash, err := otps.HashCode("123456")
	require.NoError(t, err)
	require.NotEqual(t, "123456", hash)

	r := &otps.Request{CodeHash: hash}
	require.True(t, r.Matches("123456"))
	require.False(t, r.Matches("654321"))
}
