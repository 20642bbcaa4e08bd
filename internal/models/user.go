package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleWeaver   Role = "weaver"
	RoleAdmin    Role = "admin"
)

// internal/models/user.go
type Profile struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone string    `gorm:"type:varchar(30)" json:"phone"`

	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	AvatarURL string `gorm:"type:text" json:"avatar_url"`
	Bio       string `gorm:"type:text" json:"bio"`
	Location  string `gorm:"type:varchar(120)" json:"location"`
	Craft     string `gorm:"type:varchar(120)" json:"craft"` // weaver specialty, e.g. "Banarasi silk"

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// DisplayName falls back to the email when no name was given.
func (p Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}
