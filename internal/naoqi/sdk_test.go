// Package naoqi_test tests SDK layout verification and search-path
// registration.
package naoqi_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/nao-bridge/internal/naoqi"
)

// makeSDKDir lays out a minimal SDK installation: root, lib and the client
// marker module.
func makeSDKDir(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	libDir := filepath.Join(root, "lib")
	require.NoError(t, os.Mkdir(libDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, "naoqi.py"), []byte("# stub"), 0o600))

	return root
}

func TestLocateSDK(t *testing.T) {
	t.Parallel()

	root := makeSDKDir(t)

	sdk, err := naoqi.LocateSDK(root)
	require.NoError(t, err)

	assert.Equal(t, root, sdk.Root)
	assert.Equal(t, filepath.Join(root, "lib"), sdk.LibDir)
}

func TestLocateSDKMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := naoqi.LocateSDK(filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, naoqi.ErrSDKRootMissing)
}

func TestLocateSDKMissingLib(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	_, err := naoqi.LocateSDK(root)
	require.ErrorIs(t, err, naoqi.ErrSDKLibMissing)
}

func TestRegisterSearchPathOnce(t *testing.T) {
	t.Parallel()

	root := makeSDKDir(t)

	sdk, err := naoqi.LocateSDK(root)
	require.NoError(t, err)

	env := map[string]string{}
	getenv := func(key string) string { return env[key] }
	setenv := func(key, value string) error {
		env[key] = value

		return nil
	}

	require.NoError(t, sdk.RegisterSearchPath(getenv, setenv))

	want := sdk.Root + string(filepath.ListSeparator) + sdk.LibDir
	assert.Equal(t, want, env[naoqi.SearchPathVar])

	// Registering again must not duplicate entries.
	require.NoError(t, sdk.RegisterSearchPath(getenv, setenv))
	assert.Equal(t, want, env[naoqi.SearchPathVar])
}

func TestRegisterSearchPathPreservesExisting(t *testing.T) {
	t.Parallel()

	root := makeSDKDir(t)

	sdk, err := naoqi.LocateSDK(root)
	require.NoError(t, err)

	env := map[string]string{naoqi.SearchPathVar: "/usr/lib"}
	getenv := func(key string) string { return env[key] }
	setenv := func(key, value string) error {
		env[key] = value

		return nil
	}

	require.NoError(t, sdk.RegisterSearchPath(getenv, setenv))

	separator := string(filepath.ListSeparator)
	assert.Equal(t, "/usr/lib"+separator+sdk.Root+separator+sdk.LibDir, env[naoqi.SearchPathVar])
}

func TestProbeClient(t *testing.T) {
	t.Parallel()

	root := makeSDKDir(t)

	sdk, err := naoqi.LocateSDK(root)
	require.NoError(t, err)

	require.NoError(t, sdk.ProbeClient())
}

func TestProbeClientMissingModules(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "lib"), 0o750))

	sdk, err := naoqi.LocateSDK(root)
	require.NoError(t, err)

	err = sdk.ProbeClient()
	require.ErrorIs(t, err, naoqi.ErrClientUnavailable)
	assert.Contains(t, err.Error(), root)
}
