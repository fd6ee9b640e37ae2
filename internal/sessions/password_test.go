package sessions

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordVerifier_FromPlaintext(t *testing.T) {
	v, err := NewPasswordVerifier("s3cret", "")
	require.NoError(t, err)
	require.True(t, v.Configured())
	require.True(t, v.Verify("s3cret"))
	require.False(t, v.Verify("S3cret"))
	require.False(t, v.Verify(""))
}

func TestPasswordVerifier_FromHash(t *testing.T) {
	h, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	v, err := NewPasswordVerifier("ignored", string(h))
	require.NoError(t, err)
	require.True(t, v.Verify("hunter2"))
	require.False(t, v.Verify("ignored"))
}

func TestPasswordVerifier_BadHash(t *testing.T) {
	_, err := NewPasswordVerifier("", "not-a-hash")
	require.Error(t, err)
}

func TestPasswordVerifier_Unconfigured(t *testing.T) {
	v, err := NewPasswordVerifier("", "")
	require.NoError(t, err)
	require.False(t, v.Configured())
	require.False(t, v.Verify("anything"))

	var nilV *PasswordVerifier
	require.False(t, nilV.Verify("anything"))
}
