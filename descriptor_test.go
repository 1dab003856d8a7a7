package godix_test

import (
	"reflect"
	"testing"

	"github.com/junioryono/godix"
	"github.com/junioryono/godix/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoreWithError() (*testutil.MemoryStore, error) {
	return testutil.NewMemoryStore(), nil
}

func invalidNoReturn() {}

func invalidTooManyReturns() (int, string, error) {
	return 0, "", nil
}

func TestNewDescriptor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		service  any
		lifetime godix.Lifetime
		opts     []godix.AddOption
		wantErr  assert.ErrorAssertionFunc
		validate func(t *testing.T, d *godix.Descriptor)
	}{
		{
			name:     "constructor records its concrete return type",
			service:  testutil.NewMemoryStore,
			lifetime: godix.Singleton,
			wantErr:  assert.NoError,
			validate: func(t *testing.T, d *godix.Descriptor) {
				assert.Equal(t, memoryStoreType, d.ServiceType)
				assert.Equal(t, memoryStoreType, d.ImplementationType)
				assert.False(t, d.IsInstance)
				assert.Empty(t, d.Dependencies)
			},
		},
		{
			name:     "constructor with error return",
			service:  newStoreWithError,
			lifetime: godix.Transient,
			wantErr:  assert.NoError,
			validate: func(t *testing.T, d *godix.Descriptor) {
				assert.Equal(t, memoryStoreType, d.ServiceType)
				assert.Equal(t, godix.Transient, d.Lifetime)
			},
		},
		{
			name:     "factory returning an interface has no implementation type",
			service:  testutil.NewNotifier,
			lifetime: godix.Scoped,
			wantErr:  assert.NoError,
			validate: func(t *testing.T, d *godix.Descriptor) {
				assert.Equal(t, reflect.TypeFor[testutil.Notifier](), d.ServiceType)
				assert.Nil(t, d.ImplementationType)
			},
		},
		{
			name:     "instance records its dynamic type",
			service:  &testutil.DiskStore{ID: "fixed"},
			lifetime: godix.Singleton,
			wantErr:  assert.NoError,
			validate: func(t *testing.T, d *godix.Descriptor) {
				assert.True(t, d.IsInstance)
				assert.Equal(t, diskStoreType, d.ImplementationType)
				assert.Equal(t, "fixed", d.Instance.(*testutil.DiskStore).ID)
			},
		},
		{
			name:     "As exposes the constructor under an interface",
			service:  testutil.NewMemoryStore,
			lifetime: godix.Singleton,
			opts:     []godix.AddOption{godix.As(new(testutil.Store))},
			wantErr:  assert.NoError,
			validate: func(t *testing.T, d *godix.Descriptor) {
				assert.Equal(t, storeType, d.ServiceType)
				assert.Equal(t, memoryStoreType, d.ImplementationType)
			},
		},
		{
			name:     "dependencies are analyzed",
			service:  testutil.NewService,
			lifetime: godix.Scoped,
			wantErr:  assert.NoError,
			validate: func(t *testing.T, d *godix.Descriptor) {
				require.Len(t, d.Dependencies, 1)
				assert.Equal(t, storeType, d.Dependencies[0].Type)
			},
		},
		{
			name:     "rejects nil",
			service:  nil,
			lifetime: godix.Singleton,
			wantErr:  assert.Error,
		},
		{
			name:     "rejects invalid lifetime",
			service:  testutil.NewMemoryStore,
			lifetime: godix.Lifetime(7),
			wantErr:  assert.Error,
		},
		{
			name:     "rejects constructor without result",
			service:  invalidNoReturn,
			lifetime: godix.Singleton,
			wantErr:  assert.Error,
		},
		{
			name:     "rejects constructor with several results",
			service:  invalidTooManyReturns,
			lifetime: godix.Singleton,
			wantErr:  assert.Error,
		},
		{
			name:     "rejects As with an unimplemented interface",
			service:  testutil.NewDiskStore,
			lifetime: godix.Singleton,
			opts:     []godix.AddOption{godix.As(new(testutil.Cache))},
			wantErr: func(t assert.TestingT, err error, _ ...any) bool {
				var mismatch godix.TypeMismatchError
				return assert.ErrorAs(t, err, &mismatch)
			},
		},
		{
			name:     "rejects As with a non interface",
			service:  testutil.NewDiskStore,
			lifetime: godix.Singleton,
			opts:     []godix.AddOption{godix.As(new(testutil.DiskStore))},
			wantErr:  assert.Error,
		},
		{
			name:     "rejects several As types",
			service:  testutil.NewMemoryStore,
			lifetime: godix.Singleton,
			opts:     []godix.AddOption{godix.As(new(testutil.Store), new(testutil.Cache))},
			wantErr:  assert.Error,
		},
		{
			name:     "rejects channel services",
			service:  func() chan int { return nil },
			lifetime: godix.Singleton,
			wantErr:  assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, err := godix.NewDescriptor(tt.service, tt.lifetime, tt.opts...)
			tt.wantErr(t, err)

			if tt.validate != nil && err == nil {
				tt.validate(t, d)
			}
		})
	}
}

func TestDescriptor_Validate(t *testing.T) {
	t.Parallel()

	valid := func(t *testing.T) *godix.Descriptor {
		d, err := godix.NewDescriptor(testutil.NewMemoryStore, godix.Singleton)
		require.NoError(t, err)
		return d
	}

	t.Run("valid descriptor", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, valid(t).Validate())
	})

	t.Run("nil descriptor", func(t *testing.T) {
		t.Parallel()

		var d *godix.Descriptor
		assert.ErrorIs(t, d.Validate(), godix.ErrDescriptorNil)
	})

	t.Run("missing service type", func(t *testing.T) {
		t.Parallel()

		d := valid(t)
		d.ServiceType = nil
		assert.ErrorIs(t, d.Validate(), godix.ErrServiceTypeNil)
	})

	t.Run("missing constructor", func(t *testing.T) {
		t.Parallel()

		d := valid(t)
		d.Constructor = reflect.Value{}
		assert.ErrorIs(t, d.Validate(), godix.ErrConstructorNil)
	})

	t.Run("unassignable implementation", func(t *testing.T) {
		t.Parallel()

		d := valid(t)
		d.ImplementationType = diskStoreType

		var mismatch godix.TypeMismatchError
		assert.ErrorAs(t, d.Validate(), &mismatch)
	})

	t.Run("invalid lifetime", func(t *testing.T) {
		t.Parallel()

		d := valid(t)
		d.Lifetime = godix.Lifetime(-1)

		var lifetimeErr godix.LifetimeError
		assert.ErrorAs(t, d.Validate(), &lifetimeErr)
	})
}

func TestDescriptor_String(t *testing.T) {
	t.Parallel()

	d, err := godix.NewDescriptor(testutil.NewMemoryStore, godix.Scoped)
	require.NoError(t, err)
	assert.Equal(t, "Scoped *MemoryStore", d.String())

	d, err = godix.NewDescriptor(testutil.NewMemoryStore, godix.Singleton, godix.As(new(testutil.Store)))
	require.NoError(t, err)
	assert.Equal(t, "Singleton Store (*MemoryStore)", d.String())

	var nilDescriptor *godix.Descriptor
	assert.Equal(t, "<nil>", nilDescriptor.String())
}
