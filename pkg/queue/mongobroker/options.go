package mongobroker

import "time"

// DefaultCollection is the collection jobs are stored in.
const DefaultCollection = "notify_jobs"

// Option configures a Broker.
type Option func(*brokerOptions)

type brokerOptions struct {
	collection string
	now        func() time.Time
}

// WithCollection overrides the collection name.
func WithCollection(name string) Option {
	return func(o *brokerOptions) {
		if name != "" {
			o.collection = name
		}
	}
}

// WithClock replaces time.Now for lease and visibility calculations.
func WithClock(now func() time.Time) Option {
	return func(o *brokerOptions) {
		if now != nil {
			o.now = now
		}
	}
}
