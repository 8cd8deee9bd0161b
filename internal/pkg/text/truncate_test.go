package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exact", Truncate("exact", 5))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "≥≥...", Truncate("≥≥≥≥", 2))
	assert.Equal(t, "untouched", Truncate("untouched", 0))
}
