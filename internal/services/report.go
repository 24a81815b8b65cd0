package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/algasur/algatrack/internal/models"
	"gorm.io/gorm"
)

// detailRecordLimit caps the per-record detail section of a report.
const detailRecordLimit = 50

// MonthBucket is one calendar month of production for report charts.
type MonthBucket struct {
	Month string  `json:"month"` // YYYY-MM
	Total float64 `json:"total"`
}

// CapacitySnapshot is a converted view of the most relevant capacity row.
type CapacitySnapshot struct {
	Month               time.Time `json:"month"`
	MaxMonthly          float64   `json:"max_monthly"`
	MaxAnnual           float64   `json:"max_annual"`
	Produced            float64   `json:"produced"`
	Committed           float64   `json:"committed"`
	Availability        float64   `json:"availability"`
	UtilizationPercent  float64   `json:"utilization_percent"`
	AvailabilityPercent float64   `json:"availability_percent"`
}

// ReportData is everything a rendering backend (PDF, Excel, inline view)
// needs. All quantities are already converted to the configuration's
// preferred unit; percentages are unit-free.
type ReportData struct {
	Config      models.ReportConfiguration
	From        time.Time
	To          time.Time
	GeneratedAt time.Time
	Factor      float64
	UnitLabel   string

	Species  []SpeciesTotal            // per-species totals, descending
	Monthly  []MonthBucket             // month series for charts
	Capacity *CapacitySnapshot         // nil when disabled or no row found
	Records  []models.ProductionRecord // detail rows, when notes enabled
}

// Composer builds report data from a per-client configuration.
type Composer struct {
	db *gorm.DB
}

func NewComposer(db *gorm.DB) *Composer {
	return &Composer{db: db}
}

// Window resolves the effective date range: the explicit custom range when
// configured (stretched to whole days), else the trailing history window
// of 30×months days.
func (c *Composer) Window(cfg *models.ReportConfiguration, now time.Time) (from, to time.Time) {
	if cfg.UseCustomRange && cfg.DateFrom != nil && cfg.DateTo != nil {
		f, t := *cfg.DateFrom, *cfg.DateTo
		from = time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, f.Location())
		to = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
		return from, to
	}
	months := cfg.HistoryMonths
	if months < 1 {
		months = 1
	}
	return now.AddDate(0, 0, -30*months), now
}

// filtered applies the configuration's window, species, and sector
// restrictions to a ProductionRecord query.
func (c *Composer) filtered(ctx context.Context, cfg *models.ReportConfiguration, from, to time.Time) *gorm.DB {
	q := c.db.WithContext(ctx).Model(&models.ProductionRecord{}).
		Where("created_at >= ? AND created_at <= ?", from, to)
	if len(cfg.AlgaeTypes) > 0 {
		ids := make([]uint, len(cfg.AlgaeTypes))
		for i, t := range cfg.AlgaeTypes {
			ids[i] = t.ID
		}
		q = q.Where("algae_type_id IN ?", ids)
	}
	if sectors := cfg.SectorList(); sectors != nil {
		q = q.Where("sector IN ?", sectors)
	}
	return q
}

// Compose runs the full report pipeline for one configuration.
func (c *Composer) Compose(ctx context.Context, cfg *models.ReportConfiguration, now time.Time) (*ReportData, error) {
	from, to := c.Window(cfg, now)
	factor := cfg.ConversionFactor()

	data := &ReportData{
		Config:      *cfg,
		From:        from,
		To:          to,
		GeneratedAt: now,
		Factor:      factor,
		UnitLabel:   cfg.Unit,
	}
	if data.UnitLabel == "" {
		data.UnitLabel = models.UnitKg
	}

	if cfg.ShowHistory {
		species, err := c.speciesTotals(ctx, cfg, from, to, factor)
		if err != nil {
			return nil, err
		}
		data.Species = species

		monthly, err := c.monthSeries(ctx, cfg, from, to, factor)
		if err != nil {
			return nil, err
		}
		data.Monthly = monthly
	}

	if cfg.ShowCapacity || cfg.ShowAvailability {
		snapshot, err := c.capacitySnapshot(ctx, to, factor)
		if err != nil {
			return nil, err
		}
		data.Capacity = snapshot
	}

	if cfg.IncludeNotes {
		var records []models.ProductionRecord
		err := c.filtered(ctx, cfg, from, to).
			Preload("AlgaeType").Preload("User").
			Order("created_at DESC").Limit(detailRecordLimit).
			Find(&records).Error
		if err != nil {
			return nil, err
		}
		data.Records = records
	}

	return data, nil
}

func (c *Composer) speciesTotals(ctx context.Context, cfg *models.ReportConfiguration, from, to time.Time, factor float64) ([]SpeciesTotal, error) {
	var rows []SpeciesTotal
	err := c.filtered(ctx, cfg, from, to).
		Select("production_records.algae_type_id AS algae_type_id, algae_types.name AS name, SUM(production_records.quantity) AS total, COUNT(production_records.id) AS count").
		Joins("JOIN algae_types ON algae_types.id = production_records.algae_type_id").
		Group("production_records.algae_type_id, algae_types.name").
		Order("total DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Total *= factor
	}
	return rows, nil
}

func (c *Composer) monthSeries(ctx context.Context, cfg *models.ReportConfiguration, from, to time.Time, factor float64) ([]MonthBucket, error) {
	var records []models.ProductionRecord
	if err := c.filtered(ctx, cfg, from, to).Find(&records).Error; err != nil {
		return nil, err
	}
	byMonth := make(map[string]float64)
	for _, r := range records {
		byMonth[r.CreatedAt.Format("2006-01")] += r.Quantity
	}
	out := make([]MonthBucket, 0, len(byMonth))
	for m, t := range byMonth {
		out = append(out, MonthBucket{Month: m, Total: t * factor})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// capacitySnapshot picks the capacity row for the window's end month, or
// the most recent row at or before it. Nil when no such row exists.
func (c *Composer) capacitySnapshot(ctx context.Context, windowEnd time.Time, factor float64) (*CapacitySnapshot, error) {
	endMonth := models.MonthStart(windowEnd)

	var capacity models.ProductiveCapacity
	err := c.db.WithContext(ctx).
		Where("month <= ?", endMonth).
		Order("month DESC").
		First(&capacity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &CapacitySnapshot{
		Month:               capacity.Month,
		MaxMonthly:          capacity.MaxMonthly * factor,
		MaxAnnual:           capacity.MaxAnnual * factor,
		Produced:            capacity.Produced * factor,
		Committed:           capacity.Committed * factor,
		Availability:        capacity.Availability() * factor,
		UtilizationPercent:  capacity.UtilizationPercent(),
		AvailabilityPercent: capacity.AvailabilityPercent(),
	}, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
