package models

import (
	"math"
	"time"
)

// ProductiveCapacity records planned capacity and committed/produced
// volumes for one calendar month (Month is the first day of that month,
// unique). All volumes are kilograms.
type ProductiveCapacity struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Month      time.Time `gorm:"uniqueIndex;not null" json:"month"`
	MaxMonthly float64   `gorm:"not null" json:"max_monthly"`
	MaxAnnual  float64   `gorm:"not null" json:"max_annual"`
	Produced   float64   `gorm:"not null;default:0" json:"produced"`
	Committed  float64   `gorm:"not null;default:0" json:"committed"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty"`
}

// Availability is the capacity not yet committed or produced.
func (c *ProductiveCapacity) Availability() float64 {
	return c.MaxMonthly - c.Committed - c.Produced
}

// UtilizationPercent is produced/max×100 rounded to two decimals,
// 0.00 when the monthly maximum is zero.
func (c *ProductiveCapacity) UtilizationPercent() float64 {
	if c.MaxMonthly <= 0 {
		return 0
	}
	return round2(c.Produced / c.MaxMonthly * 100)
}

// AvailabilityPercent is availability/max×100 rounded to two decimals,
// 0.00 when the monthly maximum is zero.
func (c *ProductiveCapacity) AvailabilityPercent() float64 {
	if c.MaxMonthly <= 0 {
		return 0
	}
	return round2(c.Availability() / c.MaxMonthly * 100)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// MonthStart normalizes t to the first day of its calendar month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
