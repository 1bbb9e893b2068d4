package reputation

import (
	"context"
	"fmt"
	"time"

	"zentry/engine/actors"
	"zentry/engine/library"
)

// Rescorer periodically re-runs the pipeline for every stored address, one at a time.
type Rescorer struct {
	service  *Service
	interval time.Duration
	queue    *library.Queue
}

func NewRescorer(service *Service, interval time.Duration) *Rescorer {
	return &Rescorer{service: service, interval: interval, queue: library.NewAccountQueue(16)}
}

// Start registers with the runtime and returns immediately. A non-positive interval disables it.
func (r *Rescorer) Start(runtime *actors.Runtime) {
	if r.interval <= 0 {
		return
	}
	terminate := runtime.GetTerminateChan()
	wg := runtime.GetWaitGroup()
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-terminate
			cancel()
		}()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-terminate:
				library.LogCLI("rescorer has shut down", 4)
				return
			case <-ticker.C:
				r.Run(ctx)
			}
		}
	}()
}

// Run queues every stored address and re-scores them until the queue drains or ctx ends.
// It returns the number of addresses re-scored.
func (r *Rescorer) Run(ctx context.Context) int {
	addresses, err := r.service.store.Addresses(ctx)
	if err != nil {
		library.LogCLI(fmt.Sprintf("listing addresses to rescore: %s", err), 2)
		return 0
	}
	// a cancelled run leaves nothing behind for the next one to re-score twice
	defer r.drain()
	for _, a := range addresses {
		r.queue.Push(a)
	}
	var done int
	for {
		if ctx.Err() != nil {
			return done
		}
		address, ok := r.queue.Pop()
		if !ok {
			return done
		}
		pctx, cancel := context.WithTimeout(ctx, r.service.config.PipelineTimeout)
		_, err := r.service.pipeline(pctx, address)
		cancel()
		if err != nil {
			library.LogCLI(fmt.Sprintf("rescoring %s: %s", address, err), 3)
			continue
		}
		r.service.metrics.rescored()
		done++
	}
}

func (r *Rescorer) drain() {
	for r.queue.Len() > 0 {
		r.queue.Pop()
	}
}
