package inventory

import "errors"

var (
	ErrNotFound         = errors.New("record not found")
	ErrCapacityExceeded = errors.New("sharing option capacity exceeded")
	ErrUnitInUse        = errors.New("unit has bookings")
	ErrInvalidState     = errors.New("invalid unit state")
	ErrBusy             = errors.New("room is being modified")
	ErrNextID           = errors.New("get next id from generator")
)
