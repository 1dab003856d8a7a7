package godix

import "context"

// Disposable is implemented by services holding resources. Instances a scope
// constructs are closed with that scope, newest first; singletons are
// closed with the provider. Values registered as instances belong to the
// caller and are never closed.
type Disposable interface {
	Close() error
}

// DisposableWithContext is preferred over Disposable when a service
// implements it. The context is the owning scope's context without its
// cancellation, so shutdown work can still read request values:
//
//	func (c *Conn) Close(ctx context.Context) error {
//	    return c.pool.Shutdown(ctx)
//	}
type DisposableWithContext interface {
	Close(ctx context.Context) error
}
