package testutil

import (
	"context"
	"reflect"
	"testing"

	"github.com/junioryono/godix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertServiceResolvable checks if a service can be resolved
func AssertServiceResolvable[T any](t *testing.T, r godix.Resolver) T {
	t.Helper()
	service, err := godix.Resolve[T](r)
	require.NoError(t, err, "failed to resolve service of type %v", reflect.TypeFor[T]())
	require.NotNil(t, service, "resolved service is nil")
	return service
}

// AssertServiceNotFound checks if a service resolution fails with not found error
func AssertServiceNotFound[T any](t *testing.T, r godix.Resolver) {
	t.Helper()
	_, err := godix.Resolve[T](r)
	assert.ErrorIs(t, err, godix.ErrServiceNotFound)
}

// AssertRegistrationCount checks how many registrations of T resolve.
func AssertRegistrationCount[T any](t *testing.T, r godix.Resolver, want int) []T {
	t.Helper()
	services, err := godix.ResolveAll[T](r)
	require.NoError(t, err)
	require.Len(t, services, want)
	return services
}

// AssertProviderDisposed checks if operations on a disposed provider fail correctly
func AssertProviderDisposed(t *testing.T, provider godix.Provider) {
	t.Helper()
	assert.True(t, provider.IsDisposed(), "provider should be disposed")

	_, err := provider.Get(reflect.TypeFor[any]())
	assert.ErrorIs(t, err, godix.ErrProviderDisposed)

	_, err = provider.CreateScope(context.Background())
	assert.ErrorIs(t, err, godix.ErrProviderDisposed)
}

// AssertScopeDisposed checks if operations on a disposed scope fail correctly
func AssertScopeDisposed(t *testing.T, scope godix.Scope) {
	t.Helper()
	assert.True(t, scope.IsDisposed(), "scope should be disposed")

	_, err := scope.Get(reflect.TypeFor[any]())
	assert.ErrorIs(t, err, godix.ErrScopeDisposed)

	_, err = scope.CreateScope(context.Background())
	assert.ErrorIs(t, err, godix.ErrScopeDisposed)
}

// AssertErrorType checks if an error is of a specific type
func AssertErrorType[T error](t *testing.T, err error, msgAndArgs ...any) T {
	t.Helper()
	var target T
	require.ErrorAs(t, err, &target, msgAndArgs...)
	return target
}

// AssertViolations checks that err is an exclusivity failure listing exactly
// the given violations, in order.
func AssertViolations(t *testing.T, err error, violations ...string) {
	t.Helper()
	require.ErrorIs(t, err, godix.ErrExclusivityViolation)

	exclusivity := AssertErrorType[godix.ExclusivityError](t, err)
	assert.Equal(t, violations, exclusivity.Violations)
}
