//go:build !windows

package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewContextUnavailable(t *testing.T) {
	ctx, err := NewContext()
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, ctx)
}
