package repository

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrSlotsUnavailable = errors.New("some slots unavailable")
	ErrReservationLost  = errors.New("reservation lost")
)
