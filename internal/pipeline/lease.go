package pipeline

import (
	"fmt"
	"sync"

	"github.com/gofrs/flock"

	"storygraph/internal/services"
)

// Lease is the exclusive right to run a phase batch.
type Lease struct {
	mu     sync.Mutex
	lock   *flock.Flock
	holder string
	guard  sync.Mutex
}

// NewLease builds a lease backed by a lock file at lockPath. An empty path
// limits the lease to this process.
func NewLease(lockPath string) *Lease {
	l := &Lease{}
	if lockPath != "" {
		l.lock = flock.New(lockPath)
	}
	return l
}

// Acquire takes the lease for phase and returns its release func. A held
// lease yields ErrPhaseActive.
func (l *Lease) Acquire(phase string) (func(), error) {
	if !l.mu.TryLock() {
		return nil, services.Wrap(services.ErrPhaseActive, "pipeline", "acquire lease",
			fmt.Sprintf("phase %q is running", l.Holder()), nil)
	}
	if l.lock != nil {
		ok, err := l.lock.TryLock()
		if err != nil {
			l.mu.Unlock()
			return nil, services.Wrap(services.ErrStorage, "pipeline", "acquire lease", "lock "+l.lock.Path(), err)
		}
		if !ok {
			l.mu.Unlock()
			return nil, services.Wrap(services.ErrPhaseActive, "pipeline", "acquire lease",
				"another storygraph process holds "+l.lock.Path(), nil)
		}
	}
	l.setHolder(phase)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.setHolder("")
			if l.lock != nil {
				_ = l.lock.Unlock()
			}
			l.mu.Unlock()
		})
	}, nil
}

// Holder returns the phase holding the lease, or "" when free.
func (l *Lease) Holder() string {
	l.guard.Lock()
	defer l.guard.Unlock()
	return l.holder
}

func (l *Lease) setHolder(phase string) {
	l.guard.Lock()
	l.holder = phase
	l.guard.Unlock()
}
