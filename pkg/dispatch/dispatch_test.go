package dispatch

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskfleet/dispatch/pkg/alias"
	"github.com/taskfleet/dispatch/pkg/registry"
)

func storeWith(t *testing.T, defs ...*registry.Definition) *registry.Store {
	t.Helper()
	reg, err := registry.New(defs...)
	require.NoError(t, err)
	return registry.NewStore(reg)
}

func TestActivateSingleTriggerMatch(t *testing.T) {
	a := def("A", "domain", "checkout", "payment")
	a.Tools = []string{"read", "write"}
	a.MaxTokens = 50

	d := New(storeWith(t, a))
	result := d.Activate(context.Background(), "", "design the checkout flow", 1000)

	require.Len(t, result.Activated, 1)
	assert.Equal(t, "A", result.Activated[0].ID)
	assert.Equal(t, 1, result.Activated[0].Score)
	assert.False(t, result.Activated[0].Truncated)
	assert.Equal(t, "body of A", result.Content)
	assert.Equal(t, []string{"read", "write"}, result.Tools)
	assert.False(t, result.NoMatch)
	assert.NotEmpty(t, result.RequestID)
}

func TestActivateNoMatchIsValidResult(t *testing.T) {
	d := New(storeWith(t, def("A", "domain", "checkout")))
	result := d.Activate(context.Background(), "", "rotate the kubernetes certs", 1000)

	assert.True(t, result.NoMatch)
	assert.Empty(t, result.Activated)
	assert.Empty(t, result.Content)
	assert.Empty(t, result.Tools)
}

func TestActivateExplicitInvocationOfManualDefinition(t *testing.T) {
	manual := def("manual-agent", "domain")
	manual.AutoActivate = false
	manual.Triggers = nil

	d := New(storeWith(t, manual))
	result := d.Activate(context.Background(), "manual-agent", "nothing relevant here", 1000)

	require.Len(t, result.Activated, 1)
	assert.Equal(t, "manual-agent", result.Activated[0].ID)
	assert.Equal(t, ScoreExplicit, result.Activated[0].Score)
	assert.True(t, result.Activated[0].Explicit)
	assert.False(t, result.NoMatch)
}

func TestActivateAliasBehavesLikeCanonicalInvocation(t *testing.T) {
	target := def("new-cmd", "domain", "unrelated")
	store := storeWith(t, target)
	aliases := alias.NewResolver(map[string]alias.Rule{
		"old-cmd": {Canonical: "new-cmd"},
	})

	d := New(store, WithAliases(aliases))

	viaAlias := d.Activate(context.Background(), "old-cmd", "some text", 1000)
	direct := d.Activate(context.Background(), "new-cmd", "some text", 1000)

	require.Len(t, viaAlias.Activated, 1)
	assert.Equal(t, "new-cmd", viaAlias.Activated[0].ID)
	assert.Equal(t, direct.Activated, viaAlias.Activated)
	assert.Equal(t, direct.Content, viaAlias.Content)
}

func TestActivateUnknownInvocation(t *testing.T) {
	d := New(storeWith(t, def("A", "domain", "checkout")))
	result := d.Activate(context.Background(), "ghost", "checkout flow", 1000)

	assert.True(t, result.UnknownInvocation)
	// Trigger matching still runs.
	require.Len(t, result.Activated, 1)
	assert.Equal(t, "A", result.Activated[0].ID)
}

func TestActivateTruncationReported(t *testing.T) {
	a := def("A", "domain", "checkout")
	a.MaxTokens = 5
	a.Body = strings.TrimSpace(strings.Repeat("word ", 20))

	d := New(storeWith(t, a))
	result := d.Activate(context.Background(), "", "checkout", 1000)

	require.Len(t, result.Activated, 1)
	assert.True(t, result.Activated[0].Truncated)
	assert.Equal(t, 5, result.Activated[0].Tokens)
	assert.Equal(t, "word word word word word", result.Content)
}

func TestActivateOmittedContributesNoTools(t *testing.T) {
	first := def("first", "core", "checkout")
	first.MaxTokens = 10
	first.Body = "one two three four five six seven eight nine ten"
	first.Tools = []string{"read"}

	second := def("second", "domain", "checkout")
	second.Tools = []string{"bash"}

	d := New(storeWith(t, first, second))
	result := d.Activate(context.Background(), "", "checkout", 10)

	assert.Equal(t, []string{"second"}, result.Omitted)
	assert.Equal(t, []string{"read"}, result.Tools, "omitted definition grants nothing")
	assert.False(t, result.NoMatch, "omission is not a no-match")
}

func TestActivateMaxActiveCap(t *testing.T) {
	var defs []*registry.Definition
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		defs = append(defs, def(id, "domain", "checkout"))
	}

	d := New(storeWith(t, defs...), WithMaxActive(2))
	result := d.Activate(context.Background(), "", "checkout", 1000)

	assert.Len(t, result.Activated, 2)
}

func TestActivateCoreOutranksDomain(t *testing.T) {
	domain := def("domain-agent", "domain", "checkout", "payment", "cart")
	core := def("core-agent", "core", "checkout")

	d := New(storeWith(t, domain, core))
	result := d.Activate(context.Background(), "", "checkout payment cart", 1000)

	require.Len(t, result.Activated, 2)
	assert.Equal(t, "core-agent", result.Activated[0].ID, "core sorts first regardless of score")
	assert.Equal(t, "domain-agent", result.Activated[1].ID)
}

func TestActivateConcurrentRequests(t *testing.T) {
	a := def("A", "domain", "checkout")
	d := New(storeWith(t, a))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := d.Activate(context.Background(), "", "the checkout flow", 100)
			assert.Len(t, result.Activated, 1)
		}()
	}
	wg.Wait()
}

func TestActivateDeterministicContent(t *testing.T) {
	a := def("A", "domain", "checkout")
	a.Body = strings.TrimSpace(strings.Repeat("alpha ", 40))
	a.MaxTokens = 11
	d := New(storeWith(t, a))

	first := d.Activate(context.Background(), "", "checkout", 9)
	for i := 0; i < 5; i++ {
		again := d.Activate(context.Background(), "", "checkout", 9)
		assert.Equal(t, first.Content, again.Content)
	}
}
