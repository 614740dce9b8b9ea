package firebase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayNameFallbacks(t *testing.T) {
	assert.Equal(t, "Alice", displayName("Alice", "alice@example.com", "uid-1"))
	assert.Equal(t, "alice", displayName("", "alice@example.com", "uid-1"))
	assert.Equal(t, "uid-1", displayName("", "", "uid-1"))
}
