package cache

import (
	"context"
	"errors"
	"net"
	"time"
)

// ErrUnavailable is returned when a cache backend cannot be reached.
var ErrUnavailable = errors.New("cache unavailable")

// Backoff retries an operation with pauses that double after each failure.
type Backoff struct {
	Attempts int           // total tries including the first
	Delay    time.Duration // pause after the first failure
}

// connectBackoff governs the initial redis ping.
var connectBackoff = Backoff{Attempts: 3, Delay: time.Second}

// Retry calls fn until it succeeds, fails with an error transient rejects,
// or runs out of attempts. The last error from fn is returned, or ctx's error
// if ctx ends during a pause.
func (b Backoff) Retry(ctx context.Context, transient func(error) bool, fn func() error) error {
	delay := b.Delay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !transient(err) || attempt >= b.Attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// isNetError reports whether err came from the network layer, such as a
// refused connection or a dial timeout.
func isNetError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}
