package signals

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sasha-s/go-deadlock"
	"golang.org/x/sync/singleflight"
	"zentry/engine/library"
)

const (
	OutcomeOK            = "ok"
	OutcomeUnavailable   = "unavailable"
	OutcomeNotApplicable = "not_applicable"
)

// Collector fans out to every source concurrently. Each source gets its own timeout so that a
// slow platform cannot stall the others, and a failed source is reported as absent rather than
// failing the collection.
type Collector struct {
	sources   []Source
	resolver  HandleResolver
	timeout   time.Duration
	group     singleflight.Group
	onOutcome func(source, outcome string)
}

func NewCollector(resolver HandleResolver, timeout time.Duration, sources ...Source) *Collector {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Collector{
		sources:  sources,
		resolver: resolver,
		timeout:  timeout,
	}
}

// OnOutcome registers a hook called once per source per collection, used for metrics.
func (c *Collector) OnOutcome(f func(source, outcome string)) {
	c.onOutcome = f
}

func (c *Collector) Sources() []string {
	var names []string
	for _, s := range c.sources {
		names = append(names, s.Name())
	}
	return names
}

// Collect gathers signals for address. Concurrent calls for the same address share one fetch.
// The shared fetch is not tied to any single caller's cancellation; each caller stops waiting
// when its own ctx is done.
func (c *Collector) Collect(ctx context.Context, address library.Account) (Collection, error) {
	ch := c.group.DoChan(address, func() (interface{}, error) {
		return c.collect(context.WithoutCancel(ctx), address)
	})
	select {
	case <-ctx.Done():
		return Collection{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Collection{}, res.Err
		}
		return res.Val.(Collection), nil
	}
}

type sourceResult struct {
	source string
	batch  Batch
	err    error
}

func (c *Collector) collect(ctx context.Context, address library.Account) (Collection, error) {
	handles := c.handles(ctx, address)
	results := make([]sourceResult, len(c.sources))
	wait := &deadlock.WaitGroup{}
	for i, source := range c.sources {
		wait.Add(1)
		go func(i int, source Source) {
			defer wait.Done()
			sctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			batch, err := source.Fetch(sctx, address, handles)
			results[i] = sourceResult{source: source.Name(), batch: batch, err: err}
		}(i, source)
	}
	wait.Wait()

	collection := Collection{
		Address: address,
		Social:  make(map[library.Source]SocialProfile),
	}
	var attempted, failed int
	for _, r := range results {
		switch {
		case errors.Is(r.err, ErrNotApplicable):
			c.outcome(r.source, OutcomeNotApplicable)
			continue
		case r.err != nil:
			attempted++
			failed++
			err := r.err
			if !errors.Is(err, library.ErrSourceUnavailable) {
				err = fmt.Errorf("%s: %w: %v", r.source, library.ErrSourceUnavailable, err)
			}
			library.LogCLI(fmt.Sprintf("signal source %s failed for %s: %s", r.source, address, err), 2)
			collection.Absent = append(collection.Absent, SourceStatus{Source: r.source, Error: err.Error()})
			collection.Degraded = true
			c.outcome(r.source, OutcomeUnavailable)
			continue
		}
		attempted++
		c.outcome(r.source, OutcomeOK)
		activities := append([]Activity(nil), r.batch.Activities...)
		sort.SliceStable(activities, func(i, j int) bool {
			return activities[i].Timestamp.After(activities[j].Timestamp)
		})
		collection.Activities = append(collection.Activities, activities...)
		if r.batch.Social != nil {
			collection.Social[r.batch.Social.Source] = *r.batch.Social
		}
	}
	if attempted > 0 && failed == attempted {
		return Collection{}, fmt.Errorf("collecting %s: %w", address, library.ErrAllSourcesUnavailable)
	}
	return collection, nil
}

func (c *Collector) handles(ctx context.Context, address library.Account) Handles {
	if c.resolver == nil {
		return Handles{}
	}
	h, err := c.resolver.Handles(ctx, address)
	if err != nil {
		if !errors.Is(err, library.ErrNotFound) {
			library.LogCLI(fmt.Sprintf("resolving handles for %s: %s", address, err), 2)
		}
		return Handles{}
	}
	return h
}

func (c *Collector) outcome(source, outcome string) {
	if c.onOutcome != nil {
		c.onOutcome(source, outcome)
	}
}
