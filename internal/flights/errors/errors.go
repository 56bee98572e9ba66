package errors

import "errors"

var (
	ErrClaimNotFound = errors.New("schedule claim not found")

	ErrAircraftNotFound = errors.New("aircraft not registered")

	ErrDuplicateStopOrder = errors.New("stop order already used on route")
)
