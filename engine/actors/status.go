package actors

import (
	"sync"

	"github.com/sasha-s/go-deadlock"
)

// Runtime carries the terminate channel and the waitgroup every long running mind registers with.
type Runtime struct {
	terminate chan struct{}
	wg        *deadlock.WaitGroup
	once      sync.Once
}

func NewRuntime() *Runtime {
	return &Runtime{
		terminate: make(chan struct{}),
		wg:        &deadlock.WaitGroup{},
	}
}

func (r *Runtime) GetTerminateChan() chan struct{} {
	return r.terminate
}

func (r *Runtime) GetWaitGroup() *deadlock.WaitGroup {
	return r.wg
}

// Shutdown closes the terminate channel and blocks until every mind has called Done.
func (r *Runtime) Shutdown() {
	r.once.Do(func() {
		close(r.terminate)
	})
	r.wg.Wait()
}
