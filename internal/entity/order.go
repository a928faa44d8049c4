package entity

import (
	"fmt"
	"time"
)

// CreationStatus is the confirmation-saga phase of an order.
type CreationStatus string

const (
	CreationPending        CreationStatus = "Pending"
	CreationPaid           CreationStatus = "Paid"
	CreationConfirmed      CreationStatus = "Confirmed"
	CreationNoMoney        CreationStatus = "NoMoney"
	CreationNotDeliverable CreationStatus = "NotDeliverable"
	CreationReturned       CreationStatus = "Returned"
)

// FabricationStatus is the Warehouse-driven phase of an order, also
// carrying the cancellation-saga's terminal outcomes.
type FabricationStatus string

const (
	FabricationNotStarted          FabricationStatus = "NotStarted"
	FabricationRequested           FabricationStatus = "Requested"
	FabricationInProgress          FabricationStatus = "InProgress"
	FabricationCompleted           FabricationStatus = "Completed"
	FabricationFailed              FabricationStatus = "Failed"
	FabricationCanceling           FabricationStatus = "Canceling"
	FabricationCanceled            FabricationStatus = "Canceled"
	FabricationCancelPendingRefund FabricationStatus = "CancelPendingRefund"
)

// IsTerminal reports whether further warehouse progress events should be
// ignored for advancement (§3 invariant: fabrication phase is terminal).
func (s FabricationStatus) IsTerminal() bool {
	switch s {
	case FabricationCanceled, FabricationCancelPendingRefund, FabricationFailed, FabricationCompleted:
		return true
	default:
		return false
	}
}

// DeliveryStatus is the delivery phase of an order.
type DeliveryStatus string

const (
	DeliveryNotStarted DeliveryStatus = "NotStarted"
	DeliveryReady      DeliveryStatus = "Ready"
	DeliveryDelivered  DeliveryStatus = "Delivered"
	DeliveryFailed     DeliveryStatus = "Failed"
)

// Order is a customer fabrication request and the single record the two
// sagas mutate through their phase-status fields.
type Order struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID    uint   `gorm:"index;not null" json:"client_id"`
	Description string `json:"description"`
	Address     string `json:"address"`

	PiecesA        int `gorm:"not null" json:"pieces_a"`
	PiecesB        int `gorm:"not null" json:"pieces_b"`
	NumberOfPieces int `gorm:"not null" json:"number_of_pieces"`

	CreationStatus    CreationStatus    `gorm:"type:varchar(32);not null;default:Pending" json:"creation_status"`
	FabricationStatus FabricationStatus `gorm:"type:varchar(32);not null;default:NotStarted" json:"fabrication_status"`
	DeliveryStatus    DeliveryStatus    `gorm:"type:varchar(32);not null;default:NotStarted" json:"delivery_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Order) TableName() string {
	return "fabrication_order"
}

// ErrEmptyOrder is returned when pieces_a + pieces_b would be zero.
var ErrEmptyOrder = fmt.Errorf("order must request at least one piece")

// NewOrder validates and builds an Order ready for persistence. Mirrors
// create_order's "reject if pieces_a + pieces_b = 0" rule (§4.1).
func NewOrder(clientID uint, piecesA, piecesB int, description, address string) (*Order, error) {
	if piecesA < 0 || piecesB < 0 || piecesA+piecesB < 1 {
		return nil, ErrEmptyOrder
	}
	return &Order{
		ClientID:          clientID,
		Description:       description,
		Address:           address,
		PiecesA:           piecesA,
		PiecesB:           piecesB,
		NumberOfPieces:    piecesA + piecesB,
		CreationStatus:    CreationPending,
		FabricationStatus: FabricationNotStarted,
		DeliveryStatus:    DeliveryNotStarted,
	}, nil
}

// OverallStatus derives the single human-facing status string (§4.2):
// delivery takes precedence over fabrication, which takes precedence
// over creation.
func (o *Order) OverallStatus() string {
	if o.DeliveryStatus != DeliveryNotStarted {
		return fmt.Sprintf("Delivery:%s", o.DeliveryStatus)
	}
	if o.FabricationStatus != FabricationNotStarted {
		return fmt.Sprintf("Manufacturing:%s", o.FabricationStatus)
	}
	return fmt.Sprintf("Creation:%s", o.CreationStatus)
}
