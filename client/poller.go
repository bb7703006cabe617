package client

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/opteryx-data/opteryx-go/core"
)

const (
	pollInitialInterval   = 500 * time.Millisecond
	pollBackoffMultiplier = 1.5
	pollMaxInterval       = 5 * time.Second
	pollMaxWait           = 300 * time.Second
)

// sleepFunc pauses for d or fails early when ctx is done. Injectable so
// tests can observe intervals without real delays.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return core.NewOperationalError(ctx.Err(), "statement polling interrupted")
	case <-t.C:
		return nil
	}
}

// poller drives a submitted statement to a terminal state.
type poller struct {
	status  func(ctx context.Context, handle string) (*resultPage, error)
	sleep   sleepFunc
	maxWait time.Duration
}

func newPoller(s *Session) *poller {
	return &poller{
		status:  s.statementStatus,
		sleep:   sleepContext,
		maxWait: pollMaxWait,
	}
}

// newPollInterval returns the backoff interval source: 0.5s initial,
// multiplied by 1.5 per pending poll, capped at 5s, no jitter.
func newPollInterval() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = pollInitialInterval
	b.Multiplier = pollBackoffMultiplier
	b.MaxInterval = pollMaxInterval
	b.RandomizationFactor = 0
	// the deadline below tracks cumulative sleep instead
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// wait polls the statement until it reaches a terminal state. Pending states
// sleep for a growing backoff interval; exceeding maxWait of cumulative
// sleep yields an operational timeout error regardless of server state.
func (p *poller) wait(ctx context.Context, handle string) error {
	interval := newPollInterval()

	var slept time.Duration
	for {
		page, err := p.status(ctx, handle)
		if err != nil {
			return err
		}

		raw := "UNKNOWN"
		if page.Status != nil && page.Status.State != "" {
			raw = page.Status.State
		}

		switch state := core.StatementStateFromString(raw); state {
		case core.StateSucceeded:
			logger.Debug().Str("handle", handle).Dur("waited", slept).Msg("statement succeeded")
			return nil

		case core.StateFailed:
			description := "Unknown error"
			if page.Status != nil && page.Status.Description != "" {
				description = page.Status.Description
			}
			return core.NewDatabaseError(nil, "statement execution failed: %s", description)

		case core.StatePending:
			d := interval.NextBackOff()
			if slept+d > p.maxWait {
				return core.NewOperationalError(nil, "statement execution timed out")
			}
			if err := p.sleep(ctx, d); err != nil {
				return err
			}
			slept += d

		default:
			return core.NewDatabaseError(nil, "unknown statement state: %s", raw)
		}
	}
}
