package godix

import (
	"context"
	"fmt"
	"sync"
)

// lifecycleManager tracks instances that need closing.
type lifecycleManager struct {
	owner       string
	disposables []any
	mu          sync.Mutex
}

func newLifecycleManager(owner string) *lifecycleManager {
	return &lifecycleManager{owner: owner}
}

// track records instance if it is Disposable or DisposableWithContext.
func (m *lifecycleManager) track(instance any) {
	switch instance.(type) {
	case Disposable, DisposableWithContext:
	default:
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposables = append(m.disposables, instance)
}

// count returns the number of tracked instances.
func (m *lifecycleManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.disposables)
}

// dispose closes all tracked instances in reverse order and forgets them.
func (m *lifecycleManager) dispose(ctx context.Context) error {
	m.mu.Lock()
	disposables := m.disposables
	m.disposables = nil
	m.mu.Unlock()

	var errs []error

	for i := len(disposables) - 1; i >= 0; i-- {
		var err error
		switch d := disposables[i].(type) {
		case DisposableWithContext:
			err = d.Close(ctx)
		case Disposable:
			err = d.Close()
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", disposables[i], err))
		}
	}

	if len(errs) > 0 {
		return DisposalError{Context: m.owner, Errors: errs}
	}

	return nil
}
