package domainerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSample = New(KindInsufficientAmount, "insufficient_amount")

func TestDetailedCopyMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("process payment: %w", errSample.WithDetail("required %s", "56250.00"))

	assert.ErrorIs(t, err, errSample)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindInsufficientAmount, kind)

	de, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "required 56250.00", de.Message())
	assert.Empty(t, errSample.Detail)
}

func TestDifferentCodesDoNotMatch(t *testing.T) {
	other := New(KindInsufficientAmount, "other")
	assert.False(t, errors.Is(other, errSample))

	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestWithFieldDoesNotMutate(t *testing.T) {
	base := New(KindValidation, "invalid_plan")
	withField := base.WithField("name", "required")

	assert.Nil(t, base.Fields)
	assert.Equal(t, "required", withField.Fields["name"])
}
