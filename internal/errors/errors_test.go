package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"parse", NewParseError(3, "missing ]"), ErrParse},
		{"schema", NewSchemaError(1, "Repo", "Foo", "unknown member"), ErrSchema},
		{"unresolved", NewUnresolvedArgumentError("Url"), ErrUnresolvedArgument},
		{"exhausted", NewRetrievalExhaustedError("cmake", "", nil), ErrRetrievalExhausted},
		{"circular", NewCircularDependencyError("action", "build"), ErrCircularDependency},
		{"build", NewBuildFailure("cmake", errors.New("exit 2")), ErrBuildFailure},
		{"not found", NewNotFoundError("action", "deploy"), ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wrapped := fmt.Errorf("action all: %w", tt.err)
			require.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestMessages(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Argument Url not found", NewUnresolvedArgumentError("Url").Error())
	require.Equal(t, "Action deploy not defined", NewNotFoundError("action", "deploy").Error())
	require.Equal(t, "Circular dependency detected, build action needed by itself",
		NewCircularDependencyError("action", "build").Error())
	require.Equal(t, "failed to retrieve cmake (tried path, binary)",
		NewRetrievalExhaustedError("cmake", "", []string{"path", "binary"}).Error())
}

func TestWithFile(t *testing.T) {
	t.Parallel()

	err := WithFile(fmt.Errorf("merge: %w", NewParseError(4, "[ without ]")), "tools.moche")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "tools.moche:4: [ without ]", pe.Error())

	plain := errors.New("boom")
	require.Equal(t, plain, WithFile(plain, "x"))
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	require.True(t, IsFatal(NewParseError(1, "x")))
	require.True(t, IsFatal(fmt.Errorf("wrap: %w", NewUnresolvedArgumentError("A"))))
	require.True(t, IsFatal(context.Canceled))
	require.False(t, IsFatal(NewCommandError("curl", nil, "", "", errors.New("exit 1"))))
	require.False(t, IsFatal(NewBuildFailure("x", nil)))
}
