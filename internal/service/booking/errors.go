package booking

import (
	"errors"

	"github.com/kirinyoku/slotsale/internal/catalog"
	"github.com/kirinyoku/slotsale/internal/domain"
)

var (
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrReservationLost    = errors.New("reservation lost")
	ErrDuplicateOrder     = errors.New("order already settled with a different payment")
	ErrPaymentMismatch    = errors.New("paid amount does not match package")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrPersistence        = errors.New("persistence failure")

	ErrInvalidPackage     = catalog.ErrInvalidPackage
	ErrSlotCountMismatch  = catalog.ErrSlotCountMismatch
	ErrInvalidSlotNumbers = domain.ErrInvalidSlotNumbers
)
