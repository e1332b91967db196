package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a discovery run when the caller passes none.
const DefaultTimeout = 5 * time.Second

// ErrNoTransportAvailable is returned by Locate when every transport failed.
var ErrNoTransportAvailable = errors.New("no discovery transport available")

// Transport is one mechanism for finding bridges.
//
// Discover reports bridges through found as they arrive and returns once the
// window closes or ctx ends. found may be called from the Discover goroutine
// only. An empty window is not an error; an error means discovery could not be
// attempted or was cut short by a transport failure.
type Transport interface {
	Name() string
	Discover(ctx context.Context, timeout time.Duration, found func(Candidate)) error
}

// Locator runs transports concurrently and merges their reports.
type Locator struct {
	transports []Transport
	timeout    time.Duration
	overrides  map[string]time.Duration
}

// LocatorOption configures a Locator.
type LocatorOption func(*Locator)

// WithTransportTimeout bounds a single transport more tightly than the overall
// timeout.
func WithTransportTimeout(name string, timeout time.Duration) LocatorOption {
	return func(l *Locator) {
		if timeout > 0 {
			l.overrides[name] = timeout
		}
	}
}

// NewLocator creates a locator over the given transports.
func NewLocator(transports []Transport, timeout time.Duration, opts ...LocatorOption) *Locator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	l := &Locator{
		transports: transports,
		timeout:    timeout,
		overrides:  make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Transports returns the configured transports.
func (l *Locator) Transports() []Transport {
	return l.transports
}

// Locate runs transports with the given overall timeout and no overrides.
func Locate(ctx context.Context, transports []Transport, timeout time.Duration) (*Result, error) {
	return NewLocator(transports, timeout).Locate(ctx)
}

// Locate runs every transport concurrently and returns the merged result.
//
// It returns when all transports have finished or the timeout expires,
// whichever comes first. Candidates reported before expiry are kept; a
// transport still running at expiry is abandoned through its context and is
// not counted as failed. Failed transports are listed in Result.Failures. If
// all of them failed the result comes back with ErrNoTransportAvailable.
func (l *Locator) Locate(ctx context.Context) (*Result, error) {
	if len(l.transports) == 0 {
		return NewResult(), fmt.Errorf("%w: none configured", ErrNoTransportAvailable)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		closed bool
		result = NewResult()
		wg     sync.WaitGroup
	)

	for _, t := range l.transports {
		timeout := l.timeout
		if o, ok := l.overrides[t.Name()]; ok && o < timeout {
			timeout = o
		}

		wg.Add(1)
		go func(t Transport, timeout time.Duration) {
			defer wg.Done()

			tctx, tcancel := context.WithTimeout(ctx, timeout)
			defer tcancel()

			start := time.Now()
			found := 0
			err := t.Discover(tctx, timeout, func(c Candidate) {
				if c.Source == "" {
					c.Source = t.Name()
				}
				mu.Lock()
				defer mu.Unlock()
				if closed {
					return
				}
				found++
				result.Add(c)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil && !closed {
				result.Failures[t.Name()] = err
				log.Warn().Err(err).Str("transport", t.Name()).Msg("Discovery transport failed")
				return
			}
			log.Debug().
				Str("transport", t.Name()).
				Int("found", found).
				Dur("elapsed", time.Since(start)).
				Msg("Discovery transport finished")
		}(t, timeout)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Reports already delivered are kept; anything later is dropped.
	}

	mu.Lock()
	closed = true
	failures := len(result.Failures)
	errs := make([]error, 0, failures)
	for name, err := range result.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	out := &Result{byID: result.byID, Failures: result.Failures}
	mu.Unlock()

	if failures == len(l.transports) {
		return out, fmt.Errorf("%w: %w", ErrNoTransportAvailable, errors.Join(errs...))
	}
	return out, nil
}
