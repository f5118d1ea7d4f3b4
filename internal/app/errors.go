package app

import "errors"

var (
	ErrUnknownDriver = errors.New("unknown broker driver")
	ErrBrokerConnect = errors.New("failed to open broker")

	ErrVolatileBroker = errors.New("memory broker is for development only; choose redis, postgres or mongo")
)
