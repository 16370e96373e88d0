package nexerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndKindOf(t *testing.T) {
	err := New(NotFound, "camera 7 not found")
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, NotFound, kind)
	assert.Equal(t, "NotFound: camera 7 not found", err.Error())
}

func TestWrapPreservesCauseAndUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(MediaWriteFailed, "write clip", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, MediaWriteFailed, kind)
}

func TestKindOfFalseForPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		NotFound:      404,
		PathEscape:    403,
		RangeInvalid:  416,
		AlreadyExists: 409,
		InferenceFailed: 500,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind))
	}
}
