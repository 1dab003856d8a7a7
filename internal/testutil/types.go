package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest        = errors.New("test error")
	ErrConstructor = errors.New("constructor error")
	ErrDisposal    = errors.New("disposal error")
)

// Store is a service interface with several implementations.
type Store interface {
	Name() string
}

// MemoryStore implements Store.
type MemoryStore struct {
	ID string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ID: uuid.NewString()}
}

func (s *MemoryStore) Name() string { return "memory" }

// DiskStore implements Store.
type DiskStore struct {
	ID string
}

func NewDiskStore() *DiskStore {
	return &DiskStore{ID: uuid.NewString()}
}

func (s *DiskStore) Name() string { return "disk" }

// Cache is a second service interface MemoryStore can be registered as.
type Cache interface {
	Store
	Purge()
}

func (s *MemoryStore) Purge() {}

// Notifier is an interface registered through factories that return the
// interface, so the implementation type is unknown.
type Notifier interface {
	Notify(msg string)
}

type notifier struct {
	mu   sync.Mutex
	sent []string
}

func NewNotifier() Notifier {
	return &notifier{}
}

func (n *notifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

// Repository is a generic service family.
type Repository[T any] interface {
	Find(id string) (T, bool)
}

// MapRepository implements Repository.
type MapRepository[T any] struct {
	items map[string]T
}

func NewMapRepository[T any]() *MapRepository[T] {
	return &MapRepository[T]{items: make(map[string]T)}
}

func (r *MapRepository[T]) Find(id string) (T, bool) {
	v, ok := r.items[id]
	return v, ok
}

// Handler is a generic struct family.
type Handler[T any] struct {
	Value T
}

// AuditHandler embeds a member of the Handler family.
type AuditHandler struct {
	Handler[string]
}

// Counter counts constructions.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Inc() int64 { return c.n.Add(1) }

func (c *Counter) Load() int64 { return c.n.Load() }

// Service depends on a Store.
type Service struct {
	Store Store
}

func NewService(store Store) *Service {
	return &Service{Store: store}
}

// Disposable records Close calls.
type Disposable struct {
	Name   string
	Err    error
	OnDone func(name string)

	closed atomic.Bool
}

func NewDisposable(name string, onDone func(string)) *Disposable {
	return &Disposable{Name: name, OnDone: onDone}
}

func (d *Disposable) Close() error {
	d.closed.Store(true)
	if d.OnDone != nil {
		d.OnDone(d.Name)
	}
	return d.Err
}

func (d *Disposable) IsClosed() bool { return d.closed.Load() }

// ContextDisposable records the context it was closed with.
type ContextDisposable struct {
	closed atomic.Bool
	ctx    context.Context
}

func (d *ContextDisposable) Close(ctx context.Context) error {
	d.ctx = ctx
	d.closed.Store(true)
	return nil
}

func (d *ContextDisposable) IsClosed() bool { return d.closed.Load() }

// CircularA and CircularB depend on each other.
type CircularA struct{ B *CircularB }

type CircularB struct{ A *CircularA }

func NewCircularA(b *CircularB) *CircularA { return &CircularA{B: b} }

func NewCircularB(a *CircularA) *CircularB { return &CircularB{A: a} }

// CloserFunc adapts a function to Close.
type CloserFunc func() error

func (f CloserFunc) Close() error {
	return f()
}
