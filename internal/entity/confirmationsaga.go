package entity

import (
	"time"

	"gorm.io/datatypes"
)

// ConfirmationSagaRecord mirrors the in-memory confirmation-saga instance
// to disk so the registry can be repopulated on process restart (OQ-1 of
// SPEC_FULL.md — the core spec does not require this, but flags the gap).
// It is upserted on every non-terminal transition, deleted once the saga
// reaches a terminal state, and read back once at startup
// (ConfirmationSaga.Restore); the in-memory registry remains the source
// of truth for every transition while the process is up.
type ConfirmationSagaRecord struct {
	OrderID       uint              `gorm:"primaryKey" json:"order_id"`
	State         CreationStatus    `gorm:"type:varchar(32);not null" json:"state"`
	OrderSnapshot datatypes.JSONMap `json:"order_snapshot"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ConfirmationSagaRecord) TableName() string {
	return "confirmation_saga"
}
