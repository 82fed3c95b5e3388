package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defFixture(id, tier string, triggers ...string) *Definition {
	return &Definition{
		ID:           id,
		Tier:         tier,
		Triggers:     triggers,
		AutoActivate: true,
		MaxTokens:    100,
		Body:         "body of " + id,
	}
}

func TestNewRoundTrip(t *testing.T) {
	a := defFixture("a", "core", "alpha")
	b := defFixture("b", "domain", "beta")

	reg, err := New(a, b)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	got, ok := reg.Lookup("a")
	require.True(t, ok)
	assert.Same(t, a, got, "definitions come back unmodified")

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, []*Definition{a, b}, reg.All())
}

func TestNewDuplicateID(t *testing.T) {
	reg, err := New(defFixture("a", "core", "x"), defFixture("a", "domain", "y"))
	assert.Nil(t, reg)
	require.Error(t, err)
	assert.True(t, IsMalformedDefinition(err))
}

func TestNewValidation(t *testing.T) {
	t.Run("explicit-only definition needs no triggers", func(t *testing.T) {
		def := &Definition{ID: "manual", Tier: "core", AutoActivate: false, MaxTokens: 10}
		_, err := New(def)
		assert.NoError(t, err)
	})

	t.Run("aggregates every failure", func(t *testing.T) {
		bad := &Definition{Tier: "platinum", AutoActivate: true, MaxTokens: -1}
		_, err := New(bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing id")
		assert.Contains(t, err.Error(), "invalid tier")
		assert.Contains(t, err.Error(), "max_tokens")
	})
}

func TestValidTier(t *testing.T) {
	assert.True(t, validTier("core"))
	assert.True(t, validTier("domain"))
	assert.True(t, validTier("0"))
	assert.True(t, validTier("12"))
	assert.False(t, validTier(""))
	assert.False(t, validTier("-1"))
	assert.False(t, validTier("platinum"))
}
