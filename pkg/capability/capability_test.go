package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnown(t *testing.T) {
	assert.True(t, Known(Read))
	assert.True(t, Known(WebFetch))
	assert.False(t, Known("deploy"))
	assert.False(t, Known(""))
}

func TestAllSorted(t *testing.T) {
	tokens := All()
	assert.Len(t, tokens, 7)
	for i := 1; i < len(tokens); i++ {
		assert.Less(t, tokens[i-1], tokens[i])
	}
}

func TestFilter(t *testing.T) {
	t.Run("splits known and unknown", func(t *testing.T) {
		known, unknown := Filter([]string{"read", "deploy", "write"})
		assert.Equal(t, []string{"read", "write"}, known)
		assert.Equal(t, []string{"deploy"}, unknown)
	})

	t.Run("collapses duplicates", func(t *testing.T) {
		known, unknown := Filter([]string{"read", "read", "deploy", "deploy"})
		assert.Equal(t, []string{"read"}, known)
		assert.Equal(t, []string{"deploy"}, unknown)
	})

	t.Run("empty input", func(t *testing.T) {
		known, unknown := Filter(nil)
		assert.Empty(t, known)
		assert.Empty(t, unknown)
	})
}
