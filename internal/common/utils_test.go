package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	assert.Equal(t, 18.0, Round(5.0*3.6, 2))
	assert.Equal(t, 18.18, Round(5.05*3.6, 2))
	assert.Equal(t, 2.35, Round(2.3456, 2))
	assert.Equal(t, 12.3, Round(12.34, 1))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(0, 1, 7))
	assert.Equal(t, 1, Clamp(-3, 1, 7))
	assert.Equal(t, 4, Clamp(4, 1, 7))
	assert.Equal(t, 7, Clamp(12, 1, 7))
}
