package errors

import "errors"

var (
	ErrRoomTypeNotFound = errors.New("room type not found")

	ErrBookingNotFound = errors.New("booking not found")
)
