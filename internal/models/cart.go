package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CartRecord is the remote per-user cart. Items holds the JSON encoded line
// items exactly as the checkout keeps them in memory.
type CartRecord struct {
	UserID    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	Items     datatypes.JSON `json:"items"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (CartRecord) TableName() string { return "carts" }

// All returns every table the api migrates.
func All() []any {
	return []any{&Profile{}, &Product{}, &Order{}, &OrderItem{}, &CartRecord{}}
}
