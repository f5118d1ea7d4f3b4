// Package redisbroker implements queue.Store on top of Redis.
//
// Layout, with the default "{notify}" prefix:
//
//	{notify}:job:<id>    hash with the envelope fields
//	{notify}:pending     zset, score = available_at (ms)
//	{notify}:inflight    zset, score = lease deadline (ms)
//	{notify}:completed   zset, score = completed_at (ms)
//	{notify}:failed      zset, score = failed_at (ms)
//
// Claim, Ack, Nack and PruneCompleted are Lua scripts, so a job is never leased to two
// workers and never observed half way through a transition. A job whose lease expired is
// picked up by the next Claim, which is how work held by a crashed worker is recovered.
//
// # Usage
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	broker, err := redisbroker.New(client)
package redisbroker
