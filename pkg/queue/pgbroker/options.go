package pgbroker

import "time"

// Option configures a Broker.
type Option func(*brokerOptions)

type brokerOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now for lease and visibility calculations.
func WithClock(now func() time.Time) Option {
	return func(o *brokerOptions) {
		if now != nil {
			o.now = now
		}
	}
}
