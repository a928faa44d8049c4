package entity

import "time"

// CancelSagaState is the state of a CancellationSagaRecord.
type CancelSagaState string

const (
	CancelStateCanceling           CancelSagaState = "Canceling"
	CancelStateRefunding           CancelSagaState = "Refunding"
	CancelStateCanceled            CancelSagaState = "Canceled"
	CancelStateCancelPendingRefund CancelSagaState = "CancelPendingRefund"
)

// CancellationSagaRecord is the persisted record of an in-flight or
// finished cancellation saga (§3). It is never deleted.
type CancellationSagaRecord struct {
	SagaID  string          `gorm:"primaryKey;type:varchar(36)" json:"saga_id"`
	OrderID uint            `gorm:"index;not null" json:"order_id"`
	State   CancelSagaState `gorm:"type:varchar(32);not null" json:"state"`
	Error   string          `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CancellationSagaRecord) TableName() string {
	return "cancel_saga"
}
