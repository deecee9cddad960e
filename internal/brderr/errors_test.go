package brderr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_ThroughWrapping(t *testing.T) {
	err := New(SectionNotFound, "section %d not found", 9)
	wrapped := fmt.Errorf("show failed: %w", err)

	assert.Equal(t, SectionNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, SectionNotFound))
	assert.False(t, Is(wrapped, AmbiguousCommand))
	assert.Equal(t, "section 9 not found", Message(wrapped))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(GenerationFailed, cause, "generation call failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "generation call failed: connection reset", err.Error())
	assert.Equal(t, "generation call failed", Message(err))
}

func TestPlainErrors(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("x")))
	assert.False(t, Is(nil, SectionNotFound))
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "x", Message(errors.New("x")))
}
