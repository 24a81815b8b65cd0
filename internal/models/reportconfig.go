package models

import (
	"strings"
	"time"
)

// Preferred unit and format choices for report configurations.
const (
	UnitKg  = "kg"
	UnitTon = "ton"
	UnitLb  = "lb"

	FormatPDF   = "pdf"
	FormatExcel = "excel"
	FormatBoth  = "both"
)

// Kilogram conversion factors per preferred unit.
const (
	KgPerKg  = 1.0
	TonPerKg = 0.001
	LbPerKg  = 2.20462
)

// ReportConfiguration is a saved per-client template controlling which
// data a generated report includes, in which unit and document format.
type ReportConfiguration struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Company string `gorm:"size:200;not null;index" json:"company"`
	Country string `gorm:"size:100;not null" json:"country"`
	Contact string `gorm:"size:200" json:"contact,omitempty"`
	Email   string `gorm:"size:255;not null" json:"email"`

	Unit   string `gorm:"size:10;not null;default:kg" json:"unit"`
	Format string `gorm:"size:10;not null;default:pdf" json:"format"`

	ShowCapacity     bool `gorm:"not null;default:true" json:"show_capacity"`
	ShowAvailability bool `gorm:"not null;default:true" json:"show_availability"`
	ShowHistory      bool `gorm:"not null;default:true" json:"show_history"`
	ShowCharts       bool `gorm:"not null;default:true" json:"show_charts"`
	IncludeNotes     bool `gorm:"not null;default:false" json:"include_notes"`

	// HistoryMonths drives the default window; a custom range wins when
	// UseCustomRange is set and both dates are present.
	HistoryMonths  int        `gorm:"not null;default:6" json:"history_months"`
	UseCustomRange bool       `gorm:"not null;default:false" json:"use_custom_range"`
	DateFrom       *time.Time `json:"date_from,omitempty"`
	DateTo         *time.Time `json:"date_to,omitempty"`

	// Empty filter set means "all species".
	AlgaeTypes []AlgaeType `gorm:"many2many:report_configuration_algae_types" json:"algae_types,omitempty"`
	// Sectors is a comma-separated list; empty means "all sectors".
	Sectors string `gorm:"size:500" json:"sectors,omitempty"`

	Active bool `gorm:"not null;default:true;index" json:"active"`
}

// ConversionFactor returns the kg multiplier for the preferred unit.
// Unrecognized units fall back to kilograms.
func (c *ReportConfiguration) ConversionFactor() float64 {
	switch c.Unit {
	case UnitTon:
		return TonPerKg
	case UnitLb:
		return LbPerKg
	default:
		return KgPerKg
	}
}

// SectorList parses the comma-separated sector filter, trimming
// whitespace and dropping empty entries. Nil when unrestricted.
func (c *ReportConfiguration) SectorList() []string {
	if strings.TrimSpace(c.Sectors) == "" {
		return nil
	}
	parts := strings.Split(c.Sectors, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
