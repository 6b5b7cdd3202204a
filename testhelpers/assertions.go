// Package testhelpers provides testing utilities for the moche CLI,
// including a scene system, the shared test binary, and custom assertions.
package testhelpers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Must is a generic helper function that panics if err is not nil,
// otherwise returns the value. This is useful for test setup code
// where errors are not expected and should halt execution immediately.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// ExpectStamp asserts that repo was retrieved at version and whether it was built.
func ExpectStamp(t *testing.T, scene *Scene, repo, version string, built bool) {
	t.Helper()

	stamp, err := scene.Stamp(repo)
	require.NoError(t, err)
	require.NotNil(t, stamp, "repo %s has no stamp", repo)
	require.Equal(t, version, stamp.VersionNumber, "version of repo %s", repo)
	require.Equal(t, built, stamp.Built, "built state of repo %s", repo)
}

// ExpectNoStamp asserts that repo is not retrieved.
func ExpectNoStamp(t *testing.T, scene *Scene, repo string) {
	t.Helper()

	stamp, err := scene.Stamp(repo)
	require.NoError(t, err)
	require.Nil(t, stamp, "repo %s should not be retrieved", repo)
}
