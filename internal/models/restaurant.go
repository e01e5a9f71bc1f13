package models

import (
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type Restaurant struct {
	ID        uuid.UUID        `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	DeletedAt gorm.DeletedAt   `gorm:"index" json:"-"`
	Name      string           `gorm:"size:255;not null" json:"name"`
	Address   string           `gorm:"size:255" json:"address"`
	Cuisines  JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"cuisines"`
	OwnerID   *uuid.UUID       `gorm:"type:varchar(36);index" json:"owner_id,omitempty"`
}

// MenuItem is one dish on a restaurant's menu, searchable by partial name.
type MenuItem struct {
	ID           uuid.UUID       `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	RestaurantID uuid.UUID       `gorm:"type:varchar(36);not null;index" json:"restaurant_id"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	Category     string          `gorm:"size:50" json:"category"`
	Cuisine      string          `gorm:"size:50" json:"cuisine"`
	Embedding    pgvector.Vector `gorm:"type:vector(3)" json:"-"`
}
