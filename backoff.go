package namedmsg

import "time"

// RetryStrategy yields the delay to wait between two connection attempts.
type RetryStrategy interface {
	NextDelay() time.Duration
	Reset()
}

// FixedDelay always waits the same duration.
type FixedDelay time.Duration

func (d FixedDelay) NextDelay() time.Duration {
	return time.Duration(d)
}

func (FixedDelay) Reset() {}

const (
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 30 * time.Second
)

// ExponentialBackoff doubles its delay after every attempt, up to `Max`.
// Zero values of `Initial` and `Max` mean `DefaultInitialBackoff` and
// `DefaultMaxBackoff`.
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration

	current time.Duration
}

func NewExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		Initial: DefaultInitialBackoff,
		Max:     DefaultMaxBackoff,
	}
}

func (e *ExponentialBackoff) NextDelay() time.Duration {
	initial, ceiling := e.bounds()
	if e.current <= 0 {
		e.current = initial
	}
	delay := min(e.current, ceiling)
	if e.current > ceiling/2 {
		e.current = ceiling
	} else {
		e.current *= 2
	}
	return delay
}

func (e *ExponentialBackoff) Reset() {
	e.current, _ = e.bounds()
}

func (e *ExponentialBackoff) bounds() (initial, ceiling time.Duration) {
	initial, ceiling = e.Initial, e.Max
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	if ceiling <= 0 {
		ceiling = DefaultMaxBackoff
	}
	return initial, ceiling
}
