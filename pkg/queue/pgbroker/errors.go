package pgbroker

import "errors"

var ErrDBNil = errors.New("database connection cannot be nil")
