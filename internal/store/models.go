package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type ItemModel struct {
	ID         string `gorm:"primaryKey"`
	Email      string `gorm:"index"`
	Name       string
	Category   string
	Image      string
	Status     string
	Attributes datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"not null;index"`
}

func (ItemModel) TableName() string { return "items" }

// RecoveryModel references an item by plain text; no foreign key constraint
// is declared, matching the document-store behavior this replaces.
type RecoveryModel struct {
	ID               string `gorm:"primaryKey"`
	ItemID           string `gorm:"not null;index"`
	RecoveredDate    string
	Status           string
	RecoveredByName  string
	RecoveredByEmail string `gorm:"index"`
	RecoveredByImage string
	CreatedAt        time.Time `gorm:"not null;index"`
}

func (RecoveryModel) TableName() string { return "recoveries" }
