package testutil

import (
	"testing"

	"github.com/junioryono/godix"
	"github.com/stretchr/testify/require"
)

// CollectionBuilder provides a fluent interface for building test collections
type CollectionBuilder struct {
	t          *testing.T
	collection godix.Collection
}

// NewCollectionBuilder creates a new CollectionBuilder
func NewCollectionBuilder(t *testing.T) *CollectionBuilder {
	return &CollectionBuilder{
		t:          t,
		collection: godix.NewCollection(),
	}
}

// WithSingleton adds a singleton service to the collection
func (b *CollectionBuilder) WithSingleton(constructor any, opts ...godix.AddOption) *CollectionBuilder {
	require.NoError(b.t, b.collection.AddSingleton(constructor, opts...))
	return b
}

// WithScoped adds a scoped service to the collection
func (b *CollectionBuilder) WithScoped(constructor any, opts ...godix.AddOption) *CollectionBuilder {
	require.NoError(b.t, b.collection.AddScoped(constructor, opts...))
	return b
}

// WithTransient adds a transient service to the collection
func (b *CollectionBuilder) WithTransient(constructor any, opts ...godix.AddOption) *CollectionBuilder {
	require.NoError(b.t, b.collection.AddTransient(constructor, opts...))
	return b
}

// WithModule adds a module to the collection
func (b *CollectionBuilder) WithModule(module godix.ModuleOption) *CollectionBuilder {
	require.NoError(b.t, b.collection.AddModules(module))
	return b
}

// Build returns the collection
func (b *CollectionBuilder) Build() godix.Collection {
	return b.collection
}

// BuildProvider builds a Provider and closes it when the test ends
func (b *CollectionBuilder) BuildProvider(opts ...*godix.ProviderOptions) godix.Provider {
	var options *godix.ProviderOptions
	if len(opts) > 0 {
		options = opts[0]
	}

	provider, err := b.collection.BuildWithOptions(options)
	require.NoError(b.t, err, "failed to build service provider")

	b.t.Cleanup(func() {
		if !provider.IsDisposed() {
			require.NoError(b.t, provider.Close())
		}
	})

	return provider
}
