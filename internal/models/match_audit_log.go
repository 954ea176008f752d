package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AuditActionLoad  = "load"
	AuditActionMatch = "match"
	AuditActionUndo  = "undo"

	AuditOutcomeSuccess  = "success"
	AuditOutcomeFailure  = "failure"
	AuditOutcomeDeclined = "declined"
)

// MatchAuditLog is the console's local record of operator actions and
// their outcome. It never mirrors server state.
type MatchAuditLog struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID     string    `gorm:"index"`
	Action        string    `gorm:"index"`
	TransactionID *int64    `gorm:"index"`
	InvoiceID     *int64
	Outcome       string `gorm:"index"`
	Error         string
	Details       datatypes.JSON
	CreatedAt     time.Time
}
