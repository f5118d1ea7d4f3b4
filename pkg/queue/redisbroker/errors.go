package redisbroker

import "errors"

var (
	ErrClientNil     = errors.New("redis client cannot be nil")
	ErrScriptFailed  = errors.New("redis broker script failed")
	ErrCorruptRecord = errors.New("redis job record is corrupt")

	ErrPrefixNotHashTagged = errors.New("redis cluster key prefix needs a hash tag such as {notify}")
)
