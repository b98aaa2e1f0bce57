package app

import "errors"

var (
	// ErrNoBus is returned for a bus code missing from the roster.
	ErrNoBus = errors.New("unknown bus")
	// ErrBusRequired is returned when an operation needs a bus and none is selected.
	ErrBusRequired = errors.New("bus code is required")
	// ErrUnknownFeature is returned for a feature name other than daily or booking.
	ErrUnknownFeature = errors.New("unknown feature")
)
