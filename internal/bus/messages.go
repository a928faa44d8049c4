package bus

// Payload schemas for every routing key named in SPEC_FULL.md §6/§9
// ("every routing key has a fixed payload schema" — no dynamically typed
// JSON at ingress).

// PayCommand is published on KeyPay.
type PayCommand struct {
	OrderID        uint `json:"order_id"`
	UserID         uint `json:"user_id"`
	NumberOfPieces int  `json:"number_of_pieces"`
}

// CheckDeliveryCommand is published on KeyCheckDelivery.
type CheckDeliveryCommand struct {
	OrderID uint   `json:"order_id"`
	UserID  uint   `json:"user_id"`
	Address string `json:"address"`
}

// ReturnMoneyCommand is published on KeyReturnMoney.
type ReturnMoneyCommand struct {
	OrderID uint `json:"order_id"`
	UserID  uint `json:"user_id"`
}

// WarehouseOrderPayload is published on KeyWarehouseOrder.
type WarehouseOrderPayload struct {
	OrderID        uint `json:"order_id"`
	NumberOfPieces int  `json:"number_of_pieces"`
	PiecesA        int  `json:"pieces_a"`
	PiecesB        int  `json:"pieces_b"`
}

// OrderCreatedPayload is the legacy/minimal variant of the fabrication
// trigger, published on KeyOrderCreated by revisions that chose it
// instead of KeyWarehouseOrder (OQ-2 of SPEC_FULL.md).
type OrderCreatedPayload struct {
	OrderID        uint `json:"order_id"`
	NumberOfPieces int  `json:"number_of_pieces"`
	PiecesA        int  `json:"pieces_a"`
	PiecesB        int  `json:"pieces_b"`
}

// OrderFabricatedPayload is published on KeyOrderFabricated, at most once
// per order (invariant 3, §8).
type OrderFabricatedPayload struct {
	OrderID        uint `json:"order_id"`
	NumberOfPieces int  `json:"number_of_pieces"`
	UserID         uint `json:"user_id"`
}

// CancelFabricationCommand is published on KeyCancelFabrication.
type CancelFabricationCommand struct {
	OrderID uint   `json:"order_id"`
	SagaID  string `json:"saga_id"`
}

// RefundCommand is published on KeyRefund.
type RefundCommand struct {
	OrderID uint   `json:"order_id"`
	UserID  uint   `json:"user_id"`
	SagaID  string `json:"saga_id"`
}

// PaymentResultEvent is consumed on BindingPaymentResult.
type PaymentResultEvent struct {
	OrderID uint   `json:"order_id"`
	Status  string `json:"status"` // "paid" | "not_paid"
}

// LegacyPaymentEvent is consumed on BindingPaymentPaid/BindingPaymentFailed.
type LegacyPaymentEvent struct {
	OrderID uint `json:"order_id"`
}

// DeliveryResultEvent is consumed on BindingDeliveryResult.
type DeliveryResultEvent struct {
	OrderID uint   `json:"order_id"`
	Status  string `json:"status"` // "deliverable" | "not_deliverable"
}

// DeliveryStatusEvent is consumed on BindingDeliveryFinished/BindingDeliveryReady.
type DeliveryStatusEvent struct {
	OrderID uint   `json:"order_id"`
	Status  string `json:"status"`
}

// MoneyReturnedEvent is consumed on BindingMoneyReturned.
type MoneyReturnedEvent struct {
	OrderID uint `json:"order_id"`
}

// AuthStatusEvent is consumed on BindingAuthRunning/BindingAuthNotRunning.
type AuthStatusEvent struct {
	Status string `json:"status"`
}

// WarehouseProgressEvent is consumed on the warehouse.# binding (§4.6).
type WarehouseProgressEvent struct {
	OrderID           uint   `json:"order_id"`
	Status            string `json:"status,omitempty"`
	FabricationStatus string `json:"fabrication_status,omitempty"`
	UserID            uint   `json:"user_id,omitempty"`
}

// RawStatus returns whichever of Status/FabricationStatus is populated.
func (e WarehouseProgressEvent) RawStatus() string {
	if e.FabricationStatus != "" {
		return e.FabricationStatus
	}
	return e.Status
}

// FabricationCanceledEvent is consumed on BindingFabricationCanceled.
type FabricationCanceledEvent struct {
	SagaID  string `json:"saga_id"`
	OrderID uint   `json:"order_id"`
}

// RefundResultEvent is consumed on BindingRefundResult (and its aliases).
type RefundResultEvent struct {
	SagaID string `json:"saga_id"`
	Status string `json:"status"` // "refunded" | "failed"
	Reason string `json:"reason,omitempty"`
}
