package godix_test

import (
	"bytes"
	"testing"

	"github.com/junioryono/godix"
	"github.com/junioryono/godix/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOnBuild_Cycles(t *testing.T) {
	t.Parallel()

	t.Run("cycles fail the build", func(t *testing.T) {
		t.Parallel()

		collection := godix.NewCollection()
		require.NoError(t, collection.AddSingleton(testutil.NewCircularA))
		require.NoError(t, collection.AddTransient(testutil.NewCircularB))

		_, err := collection.BuildWithOptions(&godix.ProviderOptions{ValidateOnBuild: true})

		var cycle godix.CircularDependencyError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, "circular dependency detected: *CircularA -> *CircularB -> *CircularA", cycle.Error())
		testutil.AssertErrorType[godix.BuildError](t, err)
	})

	t.Run("only the resolved registration counts", func(t *testing.T) {
		t.Parallel()

		collection := godix.NewCollection()
		require.NoError(t, collection.AddSingleton(testutil.NewCircularA))
		require.NoError(t, collection.AddSingleton(&testutil.CircularA{}))
		require.NoError(t, collection.AddSingleton(testutil.NewCircularB))

		provider, err := collection.BuildWithOptions(&godix.ProviderOptions{ValidateOnBuild: true})
		require.NoError(t, err)
		t.Cleanup(func() { _ = provider.Close() })

		testutil.AssertServiceResolvable[*testutil.CircularB](t, provider)
	})

	t.Run("slices reach every registration", func(t *testing.T) {
		t.Parallel()

		collection := godix.NewCollection()
		require.NoError(t, collection.AddSingleton(func(all []*testutil.CircularA) *testutil.CircularB { return &testutil.CircularB{} }))
		require.NoError(t, collection.AddSingleton(testutil.NewCircularA))
		require.NoError(t, collection.AddSingleton(&testutil.CircularA{}))

		_, err := collection.BuildWithOptions(&godix.ProviderOptions{ValidateOnBuild: true})
		testutil.AssertErrorType[godix.CircularDependencyError](t, err)
	})
}

func TestWriteDependencyGraph(t *testing.T) {
	t.Parallel()

	provider := testutil.NewCollectionBuilder(t).
		WithSingleton(testutil.NewMemoryStore, godix.As(new(testutil.Store))).
		WithScoped(testutil.NewService).
		BuildProvider()

	var buf bytes.Buffer
	require.NoError(t, godix.WriteDependencyGraph(&buf, provider))

	assert.Equal(t, `digraph "godix" {
  rankdir=LR;
  node [shape=box];
  n0 [label="Singleton Store (*MemoryStore)"];
  n1 [label="Scoped *Service"];
  n1 -> n0;
}
`, buf.String())

	assert.ErrorIs(t, godix.WriteDependencyGraph(&buf, nil), godix.ErrProviderNil)
}
