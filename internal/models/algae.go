package models

import "time"

// AlgaeType is a catalog entry for a harvestable species. Types referenced
// by production records cannot be deleted; deactivate them instead.
type AlgaeType struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Name             string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	ConversionFactor float64   `gorm:"not null;default:1" json:"conversion_factor"`
	Description      string    `gorm:"type:text" json:"description,omitempty"`
	Active           bool      `gorm:"not null;default:true" json:"active"`
}
