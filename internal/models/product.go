package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Product struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WeaverID uuid.UUID `gorm:"type:uuid;not null;index" json:"weaver_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"type:varchar(60);index" json:"category"` // Saree, Dupatta, Shawl, ...
	Price       int64  `gorm:"not null" json:"price"`                  // whole rupees
	Stock       int    `gorm:"not null;default:0" json:"stock"`

	ImageURL   string         `gorm:"type:text" json:"image_url"`
	Images     datatypes.JSON `json:"images"`     // ["url", ...]
	Attributes datatypes.JSON `json:"attributes"` // { fabric, technique, region, ... }

	IsVisible bool `gorm:"not null" json:"is_visible"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

func (p Product) InStock() bool { return p.Stock > 0 }
