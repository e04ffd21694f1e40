package orders

import (
	"errors"

	"github.com/kirinyoku/slotsale/internal/catalog"
)

var (
	ErrInvalidPackage     = catalog.ErrInvalidPackage
	ErrSlotCountMismatch  = catalog.ErrSlotCountMismatch
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected the order")
)
