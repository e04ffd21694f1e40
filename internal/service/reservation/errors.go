package reservation

import (
	"errors"

	"github.com/kirinyoku/slotsale/internal/domain"
)

var (
	ErrSlotsUnavailable   = errors.New("slots unavailable")
	ErrInvalidSlotNumbers = domain.ErrInvalidSlotNumbers
)
