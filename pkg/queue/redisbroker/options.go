package redisbroker

import "time"

// DefaultKeyPrefix wraps the prefix in a hash tag so every key lands in one cluster slot.
const DefaultKeyPrefix = "{notify}"

// Option configures a Broker.
type Option func(*brokerOptions)

type brokerOptions struct {
	prefix string
	now    func() time.Time
}

// WithKeyPrefix sets the namespace for all keys. Keep a hash tag when running on Redis Cluster.
func WithKeyPrefix(prefix string) Option {
	return func(o *brokerOptions) {
		if prefix != "" {
			o.prefix = prefix
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
