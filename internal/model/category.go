package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name                string     `gorm:"type:varchar(100);not null" json:"name"`
	Description         string     `gorm:"type:text" json:"description"`
	DefaultTechnicianID *uuid.UUID `gorm:"type:uuid" json:"default_technician_id"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
