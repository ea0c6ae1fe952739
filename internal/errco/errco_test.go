package errco

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	e := New(ClassTransientIO, "reading socket", cause)

	assert.True(t, errors.Is(e, cause))
	assert.Contains(t, e.Error(), "boom")
	assert.Contains(t, e.Error(), "transient-io")
}

func TestErrorWithoutCause(t *testing.T) {
	e := New(ClassFatal, "bind failed", nil)
	assert.Equal(t, "fatal: bind failed", e.Error())
}
