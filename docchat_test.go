package docchat_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/docchat"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := docchat.Errorf(docchat.ENOTFOUND, "session %q not found", "test")

	assert.Equal(t, docchat.ENOTFOUND, docchat.ErrorCode(err))
	assert.Equal(t, "session \"test\" not found", docchat.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, docchat.ErrorCode(nil))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, docchat.ErrorMessage(nil))
}

func TestErrorCode_WrappedError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("indexing: %w", docchat.Errorf(docchat.EEMBED, "embedding failed"))

	assert.Equal(t, docchat.EEMBED, docchat.ErrorCode(err))
	assert.Equal(t, "embedding failed", docchat.ErrorMessage(err))
}

func TestErrorCode_PlainErrorIsInternal(t *testing.T) {
	t.Parallel()

	err := errors.New("boom")

	assert.Equal(t, docchat.EINTERNAL, docchat.ErrorCode(err))
	assert.Equal(t, "boom", docchat.ErrorMessage(err))
}

func TestWrapError_UnwrapsCause(t *testing.T) {
	t.Parallel()

	err := docchat.WrapError(docchat.EFETCH, context.DeadlineExceeded, "fetching %s", "https://example.com")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, docchat.EFETCH, docchat.ErrorCode(err))
	assert.Equal(t, "fetching https://example.com", docchat.ErrorMessage(err))
}
