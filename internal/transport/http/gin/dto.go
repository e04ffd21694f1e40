package httpgin

import (
	"time"

	"github.com/kirinyoku/slotsale/internal/domain"
)

type ReserveRequest struct {
	SlotNumbers []int `json:"slotNumbers" binding:"required,min=1"`
}

type ReserveResponse struct {
	OK        bool      `json:"ok"`
	HoldID    string    `json:"holdId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type CreateOrderRequest struct {
	PackageID   string `json:"packageId" binding:"required"`
	SlotNumbers []int  `json:"slotNumbers" binding:"required,min=1"`
}

type CreateOrderResponse struct {
	GatewayOrderID string         `json:"gatewayOrderId"`
	Amount         int64          `json:"amount"`
	Currency       string         `json:"currency"`
	Receipt        string         `json:"receipt"`
	Package        domain.Package `json:"package"`
}

type BuyerContactInput struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	HouseNo string `json:"houseNo"`
	Street  string `json:"street"`
	City    string `json:"city"`
	Pincode string `json:"pincode"`
}

type ConfirmRequest struct {
	HoldID           string            `json:"holdId" binding:"omitempty,uuid"`
	OrderID          string            `json:"orderId"`
	GatewayOrderID   string            `json:"gatewayOrderId" binding:"required"`
	GatewayPaymentID string            `json:"gatewayPaymentId" binding:"required"`
	GatewaySignature string            `json:"gatewaySignature" binding:"required"`
	SlotNumbers      []int             `json:"slotNumbers"`
	PackageID        string            `json:"packageId"`
	BuyerContact     BuyerContactInput `json:"buyerContact"`
}

type ConfirmResponse struct {
	Booking *domain.Booking `json:"booking"`
	Created bool            `json:"created"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (b BuyerContactInput) toDomain() domain.BuyerContact {
	return domain.BuyerContact{
		Name:    b.Name,
		Phone:   b.Phone,
		Email:   b.Email,
		HouseNo: b.HouseNo,
		Street:  b.Street,
		City:    b.City,
		Pincode: b.Pincode,
	}
}
