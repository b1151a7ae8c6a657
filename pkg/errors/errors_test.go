package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "should be nil"))
	assert.Nil(t, Wrapf(nil, "should be %s", "nil"))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, "saving dream failed")

	assert.Equal(t, "saving dream failed", err.Error())
	assert.Equal(t, cause, Cause(err))
	assert.True(t, stderrors.Is(err, cause))
}

func TestWithCode(t *testing.T) {
	err := WithCode(404, "dream not found")
	assert.Equal(t, 404, GetCode(err))
	assert.Equal(t, "dream not found", GetMessage(err))

	assert.Equal(t, 0, GetCode(stderrors.New("plain")))
}

func TestWithContextDoesNotMutate(t *testing.T) {
	base := New("upstream timeout").WithContext("stage", "transcribe")
	derived := base.WithContext("provider", "whisper")

	assert.Len(t, base.Context, 1)
	assert.Len(t, derived.Context, 2)
	assert.Equal(t, "provider", derived.Context[1].Key)
}
