package redisbroker

import "github.com/redis/go-redis/v9"

// Return codes shared by the transition scripts.
const (
	codeLeaseLost   = -2
	codeNotFound    = -1
	codeNotInFlight = 0
	codeOK          = 1
	codeFailed      = 2
)

// KEYS[1] job hash, KEYS[2] pending
// ARGV[1] id, ARGV[2] available_at ms, ARGV[3..] hash field/value pairs
var enqueueScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 3))
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
return 1
`)

// Picks the oldest pending job that is due, or an in-flight job whose lease expired,
// whichever became available first. Pending ties resolve by member order; ids are
// UUIDv7 so that matches creation order.
//
// KEYS[1] pending, KEYS[2] inflight
// ARGV[1] now ms, ARGV[2] lease deadline ms, ARGV[3] worker id, ARGV[4] job key prefix
var claimScript = redis.NewScript(`
local id = nil
local ready = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'WITHSCORES', 'LIMIT', 0, 1)
local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1], 'LIMIT', 0, 1)

if #ready > 0 then
	id = ready[1]
end
if #expired > 0 then
	local availableAt = tonumber(redis.call('HGET', ARGV[4] .. expired[1], 'available_at'))
	if id == nil or availableAt <= tonumber(ready[2]) then
		id = expired[1]
	end
end
if id == nil then
	return false
end

redis.call('ZREM', KEYS[1], id)
redis.call('ZADD', KEYS[2], ARGV[2], id)
redis.call('HSET', ARGV[4] .. id,
	'status', 'in_flight',
	'locked_by', ARGV[3],
	'locked_until', ARGV[2],
	'last_attempt_at', ARGV[1])
return id
`)

// KEYS[1] job hash, KEYS[2] inflight, KEYS[3] completed
// ARGV[1] id, ARGV[2] now ms, ARGV[3] worker id
var ackScript = redis.NewScript(`
local state = redis.call('HMGET', KEYS[1], 'status', 'locked_by')
if not state[1] then
	return -1
end
if state[1] ~= 'in_flight' then
	return 0
end
if state[2] ~= ARGV[3] then
	return -2
end
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[1])
redis.call('HSET', KEYS[1],
	'status', 'completed',
	'completed_at', ARGV[2],
	'locked_by', '',
	'locked_until', 0)
return 1
`)

// KEYS[1] job hash, KEYS[2] pending, KEYS[3] inflight, KEYS[4] failed
// ARGV[1] id, ARGV[2] now ms, ARGV[3] retry flag, ARGV[4] available_at ms, ARGV[5] reason,
// ARGV[6] worker id
var nackScript = redis.NewScript(`
local state = redis.call('HMGET', KEYS[1], 'status', 'locked_by')
if not state[1] then
	return -1
end
if state[1] ~= 'in_flight' then
	return 0
end
if state[2] ~= ARGV[6] then
	return -2
end

local attempts = tonumber(redis.call('HGET', KEYS[1], 'attempt_count'))
local maxAttempts = tonumber(redis.call('HGET', KEYS[1], 'max_attempts'))
if attempts < maxAttempts then
	attempts = attempts + 1
end

redis.call('ZREM', KEYS[3], ARGV[1])
redis.call('HSET', KEYS[1],
	'attempt_count', attempts,
	'last_error', ARGV[5],
	'locked_by', '',
	'locked_until', 0)

if ARGV[3] == '1' and attempts < maxAttempts then
	redis.call('HSET', KEYS[1], 'status', 'pending', 'available_at', ARGV[4])
	redis.call('ZADD', KEYS[2], ARGV[4], ARGV[1])
	return 1
end

redis.call('HSET', KEYS[1], 'status', 'failed_permanent', 'failed_at', ARGV[2])
redis.call('ZADD', KEYS[4], ARGV[2], ARGV[1])
return 2
`)

// KEYS[1] completed
// ARGV[1] cutoff ms, ARGV[2] job key prefix
var pruneScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
for _, id in ipairs(ids) do
	redis.call('DEL', ARGV[2] .. id)
end
if #ids > 0 then
	redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
end
return #ids
`)
