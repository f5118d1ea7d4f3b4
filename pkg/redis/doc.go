// Package redis provides helpers for connecting to Redis with go-redis: a retrying
// Connect driven by REDIS_* environment variables and a health check for probes.
//
// # Usage
//
//	var cfg redis.Config
//	if err := env.Parse(&cfg); err != nil {
//	    return err
//	}
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	health := redis.Healthcheck(client)
//
// # Errors
//
// Sentinel errors (e.g. ErrRedisNotReady) wrap the underlying go-redis errors using
// errors.Join, so they can be checked with errors.Is.
package redis
