package domain

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotReserved  SlotStatus = "reserved"
	SlotBooked    SlotStatus = "booked"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotAvailable, SlotReserved, SlotBooked:
		return true
	}
	return false
}

type Slot struct {
	Number     int        `json:"number"`
	Status     SlotStatus `json:"status"`
	ReservedAt *time.Time `json:"reserved_at,omitempty"`
	BookedAt   *time.Time `json:"booked_at,omitempty"`
}

// Hold is a timed claim on a set of slots. A confirmation that carries
// the hold ID only books the slots while they still belong to it.
type Hold struct {
	ID          uuid.UUID `json:"id"`
	SlotNumbers []int     `json:"slot_numbers"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type SlotCounts struct {
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
	Booked    int64 `json:"booked"`
	Total     int64 `json:"total"`
}

// Package is a purchase tier. Price is in major currency units.
type Package struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	SlotsRequired int    `json:"slots_required"`
	UnitsGranted  int    `json:"units_granted"`
	Price         int64  `json:"price"`
}

func (p Package) PriceMinor() int64 {
	return p.Price * 100
}

type BuyerContact struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	HouseNo string `json:"house_no"`
	Street  string `json:"street"`
	City    string `json:"city"`
	Pincode string `json:"pincode"`
}

type BookingStatus string

const BookingSuccess BookingStatus = "success"

type Booking struct {
	ID               uuid.UUID     `json:"id"`
	OrderID          string        `json:"order_id"`
	SlotNumbers      []int         `json:"slot_numbers"`
	PackageID        string        `json:"package_id"`
	UnitsGranted     int           `json:"units_granted"`
	AmountPaid       int64         `json:"amount_paid"`
	Currency         string        `json:"currency"`
	GatewayOrderID   string        `json:"gateway_order_id"`
	PaymentReference string        `json:"payment_reference"`
	Buyer            BuyerContact  `json:"buyer"`
	Status           BookingStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
}

// PaymentOrder is what the storefront needs to open the gateway checkout.
type PaymentOrder struct {
	GatewayOrderID string  `json:"gateway_order_id"`
	Amount         int64   `json:"amount"`
	Currency       string  `json:"currency"`
	Receipt        string  `json:"receipt"`
	Package        Package `json:"package"`
}

// BookingEvent is the payload handed to the notification sink.
type BookingEvent struct {
	Type      string    `json:"type"`
	Booking   Booking   `json:"booking"`
	Package   Package   `json:"package"`
	CreatedAt time.Time `json:"created_at"`
}

const EventBookingConfirmed = "booking.confirmed"

// PaymentIncident records a verified payment that did not become a booking.
type PaymentIncident struct {
	ID               uuid.UUID    `json:"id"`
	OrderID          string       `json:"order_id"`
	GatewayOrderID   string       `json:"gateway_order_id"`
	PaymentReference string       `json:"payment_reference"`
	SlotNumbers      []int        `json:"slot_numbers"`
	PackageID        string       `json:"package_id"`
	Buyer            BuyerContact `json:"buyer"`
	Reason           string       `json:"reason"`
	CreatedAt        time.Time    `json:"created_at"`
}

// OutboxMessage is a pending notification written alongside a booking.
type OutboxMessage struct {
	ID        uuid.UUID `json:"id"`
	BookingID uuid.UUID `json:"booking_id"`
	Payload   []byte    `json:"payload"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}
