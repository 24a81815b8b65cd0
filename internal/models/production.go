package models

import "time"

// ProductionRecord is one harvest entry: who collected how much of which
// species in which sector. Quantities are kilograms. The user and algae
// type associations are delete-protected while records reference them.
type ProductionRecord struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time  `gorm:"index:idx_production_created,sort:desc" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	User        *User      `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"user,omitempty"`
	AlgaeTypeID uint       `gorm:"index;not null" json:"algae_type_id"`
	AlgaeType   *AlgaeType `gorm:"foreignKey:AlgaeTypeID;constraint:OnDelete:RESTRICT" json:"algae_type,omitempty"`
	Quantity    float64    `gorm:"not null" json:"quantity"`
	Sector      string     `gorm:"size:100;not null" json:"sector"`
	Notes       string     `gorm:"type:text" json:"notes,omitempty"`
}

// AdjustedQuantity applies the species conversion factor.
// Returns the raw quantity when the association is not loaded.
func (r *ProductionRecord) AdjustedQuantity() float64 {
	if r.AlgaeType == nil {
		return r.Quantity
	}
	return r.Quantity * r.AlgaeType.ConversionFactor
}
