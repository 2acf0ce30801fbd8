package types

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpError(t *testing.T) {
	t.Parallel()

	err := NewOpError(KindInvalidPath, "/nope", fs.ErrNotExist)
	wrapped := fmt.Errorf("clean: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInvalidPath))
	assert.False(t, errors.Is(wrapped, ErrNoManifests))
	assert.True(t, errors.Is(wrapped, fs.ErrNotExist))
	assert.Equal(t, KindInvalidPath, KindOf(wrapped))
	assert.Equal(t, "invalid path: /nope: file does not exist", err.Error())
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindNoManifests, KindOf(fmt.Errorf("restore: %w", ErrNoManifests)))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, "OperationInProgress", KindOperationInProgress.String())
	assert.Equal(t, "operation in progress", NewOpError(KindOperationInProgress, "", nil).Error())
}

func TestParseErrorKind(t *testing.T) {
	t.Parallel()

	for kind := range kindSentinels {
		assert.Equal(t, kind, ParseErrorKind(kind.String()))
	}
	assert.Equal(t, KindUnknown, ParseErrorKind("Bogus"))
}
