package flowerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	t.Parallel()

	cause := errors.New("503 service unavailable")
	err := fmt.Errorf("connect r1: %w", Wrap(CreateFailure, "connect", cause, "could not create round %q", "Final"))

	assert.True(t, IsKind(err, CreateFailure))
	assert.False(t, IsKind(err, DeleteFailure))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `could not create round "Final"`, Message(err))

	k, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
	assert.Zero(t, k)
	assert.Equal(t, "plain", Message(errors.New("plain")))
}

func TestError_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "connect: no", New(ValidationRejection, "connect", "no").Error())
	assert.Equal(t, "validation_rejection", ValidationRejection.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
