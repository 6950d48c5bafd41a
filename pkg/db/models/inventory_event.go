package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shoptracker/shoptracker-backend/pkg/enums"
)

// InventoryEvent is an immutable record of one catalog mutation. ProductName
// is captured at event time so later renames do not rewrite history.
type InventoryEvent struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID   string          `gorm:"column:product_id;not null;index"`
	ProductName string          `gorm:"column:product_name;not null"`
	Username    string          `gorm:"column:username;not null"`
	Kind        enums.EventKind `gorm:"column:kind;type:text;not null"`
	OldQuantity int             `gorm:"column:old_quantity;not null"`
	NewQuantity int             `gorm:"column:new_quantity;not null"`
	Delta       int             `gorm:"column:delta;not null"`
	OccurredAt  time.Time       `gorm:"column:occurred_at;not null;index"`
}

// TableName pins the archive table.
func (InventoryEvent) TableName() string {
	return "inventory_events"
}

// String renders the event for display surfaces and debugging.
func (e InventoryEvent) String() string {
	return fmt.Sprintf("%s | %s | %s | %s (%s) | %d -> %d | delta %+d",
		e.OccurredAt.Format(time.RFC3339), e.Username, e.Kind,
		e.ProductName, e.ProductID, e.OldQuantity, e.NewQuantity, e.Delta)
}
