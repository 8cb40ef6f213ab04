package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/yesod/internal/jwt"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestKeysGenerate_RejectsSmallKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signing.pem")

	_, err := runCLI(t, "keys", "generate", "--out", path, "--bits", "1024")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--bits 1024")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing written")
}

func TestKeysGenerate_WritesLoadablePair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "signing.pem")

	out, err := runCLI(t, "keys", "generate", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "kid=")

	kp, generated, err := jwt.LoadOrGenerate(path)
	require.NoError(t, err)
	assert.False(t, generated)

	pub, err := jwt.LoadPublicKeys([]string{path + ".pub"})
	require.NoError(t, err)
	require.Len(t, pub, 1)
	assert.Equal(t, kp.KID, jwt.Thumbprint(pub[0]))

	_, err = runCLI(t, "keys", "generate", "--out", path)
	assert.Error(t, err, "existing key needs --force")
}
