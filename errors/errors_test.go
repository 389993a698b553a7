package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFatError_ImplementsError(t *testing.T) {
	var err error = ErrNotFound
	assert.Equal(t, "No such file or directory", err.Error())
}

func TestWithMessage_AppendsContext(t *testing.T) {
	wrapped := ErrAlreadyExists.WithMessage("File already exists in destination")
	assert.Equal(t, "Directory/file already exists: File already exists in destination", wrapped.Error())
}

func TestWithMessage_UnwrapsToSentinel(t *testing.T) {
	wrapped := ErrDirectoryNotEmpty.WithMessage("non-empty")
	require.True(t, errors.Is(wrapped, ErrDirectoryNotEmpty))
}

func TestWrapError_PreservesUnderlyingError(t *testing.T) {
	underlying := fmt.Errorf("disk failure")
	wrapped := ErrMountFailed.WrapError(underlying)

	assert.Contains(t, wrapped.Error(), "Failed to mount image")
	assert.Contains(t, wrapped.Error(), "disk failure")
	require.True(t, errors.Is(wrapped, underlying))
}

func TestSentinelsAreDistinct(t *testing.T) {
	assert.NotEqual(t, ErrNotFound, ErrNotADirectory)
	assert.NotEqual(t, ErrSourceOpen.Error(), ErrSourceOpen.WithMessage("x").Error())
}
