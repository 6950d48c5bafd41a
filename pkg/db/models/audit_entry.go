package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one timestamped line of the security audit trail. Entries
// are free text; structured stock history lives in InventoryEvent.
type AuditEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Message    string    `gorm:"column:message;not null"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null;index"`
}

// TableName pins the archive table.
func (AuditEntry) TableName() string {
	return "audit_entries"
}

// String renders the entry as a display-ready log line.
func (a AuditEntry) String() string {
	return fmt.Sprintf("%s - %s", a.OccurredAt.Format("2006-01-02 15:04:05"), a.Message)
}
