// Package retry provides the bounded retry policy injected into every
// component that talks to an external collaborator (decision oracles,
// snapshot stores). Retries are always explicit and bounded; there is no
// hidden retry loop anywhere else in the codebase.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds retries of a transient external fault: at most MaxAttempts
// calls, exponential backoff starting at Initial and capped at MaxInterval.
type Policy struct {
	MaxAttempts int
	Initial     time.Duration
	MaxInterval time.Duration
}

// Default mirrors the historical oracle-call policy: three attempts with
// exponential backoff starting at one second.
func Default() Policy {
	return Policy{MaxAttempts: 3, Initial: time.Second, MaxInterval: 30 * time.Second}
}

// Do runs fn under the policy until it succeeds, the attempts are exhausted,
// or ctx is cancelled. The last error is returned. A Policy with
// MaxAttempts <= 1 runs fn exactly once.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		bo.InitialInterval = p.Initial
	}
	if p.MaxInterval > 0 {
		bo.MaxInterval = p.MaxInterval
	}
	bo.RandomizationFactor = 0 // deterministic pauses: the sim clock owns randomness

	wrapped := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx)

	return backoff.Retry(func() error {
		return fn(ctx)
	}, wrapped)
}
