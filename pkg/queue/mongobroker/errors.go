package mongobroker

import "errors"

var (
	ErrDatabaseNil     = errors.New("mongo database cannot be nil")
	ErrCorruptDocument = errors.New("mongo job document is corrupt")
)
