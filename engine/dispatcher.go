package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/souschef/models"
)

// Dispatcher races several engines with staged escalation. The first engine
// starts immediately and each later one starts after its delay unless an
// earlier engine has already succeeded.
//
// A Dispatcher is itself an Engine, so callers never need to know whether
// one or several engines are configured.
type Dispatcher struct {
	engines []Engine
	delays  []time.Duration
	memory  *HostMemory
}

// NewDispatcher creates a Dispatcher. engines[i] starts delays[i] after the
// race begins; missing delays are zero. memory may be nil.
func NewDispatcher(engines []Engine, delays []time.Duration, memory *HostMemory) *Dispatcher {
	d := make([]time.Duration, len(engines))
	copy(d, delays)
	return &Dispatcher{engines: engines, delays: d, memory: memory}
}

func (d *Dispatcher) Name() string { return "dispatcher" }

// Fetch tries the engine remembered for the URL's host first, then runs the
// full race. If every engine fails the most informative error is returned.
func (d *Dispatcher) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if len(d.engines) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "no fetch engines configured", nil)
	}
	if len(d.engines) == 1 {
		return d.engines[0].Fetch(ctx, req)
	}

	host := hostOf(req.URL)
	if remembered := d.memory.Get(ctx, host); remembered != "" {
		for _, eng := range d.engines {
			if eng.Name() != remembered {
				continue
			}
			result, err := eng.Fetch(ctx, req)
			if err == nil {
				return result, nil
			}
			// An upstream status is the same whichever engine asks.
			if isUpstream(err) {
				return nil, err
			}
			slog.Info("remembered engine failed, running full race",
				"host", host, "engine", remembered, "error", err)
			d.memory.Forget(ctx, host)
			break
		}
	}

	return d.race(ctx, req, host)
}

func (d *Dispatcher) race(ctx context.Context, req *FetchRequest, host string) (*FetchResult, error) {
	type raceResult struct {
		result *FetchResult
		err    error
	}

	raceCtx, raceCancel := context.WithCancel(ctx)
	defer raceCancel()

	results := make(chan raceResult, len(d.engines))
	var wg sync.WaitGroup

	for i, eng := range d.engines {
		wg.Add(1)
		go func(e Engine, delay time.Duration) {
			defer wg.Done()

			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-raceCtx.Done():
					return
				case <-timer.C:
				}
			}
			if raceCtx.Err() != nil {
				return
			}

			slog.Debug("engine starting", "engine", e.Name(), "url", req.URL)
			result, err := e.Fetch(raceCtx, req)
			if err != nil {
				slog.Debug("engine failed", "engine", e.Name(), "url", req.URL, "error", err)
			}
			results <- raceResult{result: result, err: err}
		}(eng, d.delays[i])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var lastErr error
	for rr := range results {
		if rr.err != nil {
			lastErr = preferError(lastErr, rr.err)
			continue
		}
		raceCancel()
		slog.Debug("engine won race", "engine", rr.result.EngineName, "url", req.URL)
		d.memory.Set(ctx, host, rr.result.EngineName)
		return rr.result, nil
	}

	if lastErr == nil {
		if err := ctx.Err(); err != nil {
			return nil, categorizeError(err, "fetch of "+req.URL+" canceled")
		}
		lastErr = models.NewScrapeError(models.ErrCodeNavigation,
			fmt.Sprintf("all engines failed for %s", req.URL), nil)
	}
	return nil, lastErr
}

// preferError keeps an upstream status error over transport failures so
// callers can report it.
func preferError(current, next error) error {
	if current != nil && isUpstream(current) && !isUpstream(next) {
		return current
	}
	return next
}

func isUpstream(err error) bool {
	var se *models.ScrapeError
	return errors.As(err, &se) && se.Code == models.ErrCodeUpstream
}
