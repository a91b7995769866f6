package sigdispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryToSignal_RoundTrips(t *testing.T) {
	for cat := range categorySignals {
		sig, ok := categoryToSignal(cat)
		assert.True(t, ok)

		got, ok := signalToCategory(sig)
		assert.True(t, ok)
		assert.Equal(t, cat, got)
	}
}

func TestCategoryToSignal_UnknownCategory(t *testing.T) {
	_, ok := categoryToSignal(Category(0))
	assert.False(t, ok)
}
