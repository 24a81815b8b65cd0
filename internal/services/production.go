// Package services holds the read-side computations: production
// aggregation for dashboards and the per-client report composer.
package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/algasur/algatrack/internal/models"
	"gorm.io/gorm"
)

// Aggregator computes time-windowed production statistics. It is pure
// read-side logic; week and day bucketing happen in Go so the same code
// runs against postgres and the sqlite test databases.
type Aggregator struct {
	db *gorm.DB
	// defaultCapacityKg stands in for months with no configured capacity
	// row. A placeholder policy inherited from the previous system.
	defaultCapacityKg float64
}

func NewAggregator(db *gorm.DB, defaultCapacityKg float64) *Aggregator {
	return &Aggregator{db: db, defaultCapacityKg: defaultCapacityKg}
}

// WindowedSum totals harvested quantity inside [from, to]. ownerID 0 means
// all users. Returns 0, not an error, when nothing matches.
func (a *Aggregator) WindowedSum(ctx context.Context, from, to time.Time, ownerID uint) (float64, error) {
	q := a.db.WithContext(ctx).Model(&models.ProductionRecord{}).
		Where("created_at >= ? AND created_at <= ?", from, to)
	if ownerID != 0 {
		q = q.Where("user_id = ?", ownerID)
	}
	var total *float64
	if err := q.Select("SUM(quantity)").Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// CountRecords counts production records, owner-scoped when ownerID != 0.
func (a *Aggregator) CountRecords(ctx context.Context, ownerID uint) (int64, error) {
	q := a.db.WithContext(ctx).Model(&models.ProductionRecord{})
	if ownerID != 0 {
		q = q.Where("user_id = ?", ownerID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// RecentRecords returns the latest entries with species and author
// preloaded. Non-administrators only see their own records; aggregate
// totals elsewhere stay organization-wide for every role.
func (a *Aggregator) RecentRecords(ctx context.Context, viewer *models.User, limit int) ([]models.ProductionRecord, error) {
	q := a.db.WithContext(ctx).
		Preload("User").Preload("AlgaeType").
		Order("created_at DESC").Limit(limit)
	if viewer != nil && !viewer.IsAdmin() {
		q = q.Where("user_id = ?", viewer.ID)
	}
	var records []models.ProductionRecord
	err := q.Find(&records).Error
	return records, err
}

// SpeciesTotal is a per-species aggregate. Species with zero production
// are omitted; they remain in the catalog.
type SpeciesTotal struct {
	AlgaeTypeID uint    `json:"algae_type_id"`
	Name        string  `json:"name"`
	Total       float64 `json:"total"`
	Count       int64   `json:"count"`
}

// TotalsBySpecies sums and counts production grouped by algae type,
// ordered by total descending.
func (a *Aggregator) TotalsBySpecies(ctx context.Context) ([]SpeciesTotal, error) {
	var rows []SpeciesTotal
	err := a.db.WithContext(ctx).Model(&models.ProductionRecord{}).
		Select("production_records.algae_type_id AS algae_type_id, algae_types.name AS name, SUM(production_records.quantity) AS total, COUNT(production_records.id) AS count").
		Joins("JOIN algae_types ON algae_types.id = production_records.algae_type_id").
		Group("production_records.algae_type_id, algae_types.name").
		Order("total DESC").
		Scan(&rows).Error
	return rows, err
}

// WeekBucket is one calendar week (Monday through Sunday) of production.
type WeekBucket struct {
	WeekStart time.Time `json:"week_start"`
	WeekEnd   time.Time `json:"week_end"`
	Total     float64   `json:"total"`
	Count     int64     `json:"count"`
}

// WeekStart returns the Monday 00:00 of t's calendar week.
func WeekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// WeeklyBuckets partitions the lookback window ending at now into
// calendar weeks. Aggregation is identical for every role.
func (a *Aggregator) WeeklyBuckets(ctx context.Context, now time.Time, weeks int) ([]WeekBucket, error) {
	if weeks <= 0 {
		weeks = 8
	}
	from := WeekStart(now).AddDate(0, 0, -7*(weeks-1))

	var records []models.ProductionRecord
	if err := a.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", from, now).
		Find(&records).Error; err != nil {
		return nil, err
	}

	byWeek := make(map[time.Time]*WeekBucket, weeks)
	for _, r := range records {
		ws := WeekStart(r.CreatedAt)
		b, ok := byWeek[ws]
		if !ok {
			b = &WeekBucket{WeekStart: ws, WeekEnd: ws.AddDate(0, 0, 6)}
			byWeek[ws] = b
		}
		b.Total += r.Quantity
		b.Count++
	}

	out := make([]WeekBucket, 0, len(byWeek))
	for _, b := range byWeek {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.Before(out[j].WeekStart) })
	return out, nil
}

// DayTotal is one day of production for chart feeds.
type DayTotal struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Total float64 `json:"total"`
}

// DailyTotals buckets the last `days` days by calendar day, ascending.
// Days without production are omitted.
func (a *Aggregator) DailyTotals(ctx context.Context, now time.Time, days int) ([]DayTotal, error) {
	from := now.AddDate(0, 0, -days)
	var records []models.ProductionRecord
	if err := a.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", from, now).
		Find(&records).Error; err != nil {
		return nil, err
	}

	byDay := make(map[string]float64)
	for _, r := range records {
		byDay[r.CreatedAt.Format("2006-01-02")] += r.Quantity
	}
	out := make([]DayTotal, 0, len(byDay))
	for d, t := range byDay {
		out = append(out, DayTotal{Date: d, Total: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// CapacityUsage cross-references one month's production against its
// configured capacity.
type CapacityUsage struct {
	Month              time.Time `json:"month"`
	CapacityTotal      float64   `json:"capacity_total"`
	Produced           float64   `json:"produced"`
	UtilizationPercent float64   `json:"utilization_percent"`
	// Defaulted marks months with no configured capacity row, where the
	// placeholder default was used instead.
	Defaulted bool `json:"defaulted"`
}

// MonthlyCapacityUsage looks up the capacity row for the month containing
// target and computes utilization of that month's production against it.
// Missing rows fall back to the configured default capacity; a zero
// capacity yields 0% utilization.
func (a *Aggregator) MonthlyCapacityUsage(ctx context.Context, target time.Time) (CapacityUsage, error) {
	monthStart := models.MonthStart(target)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)

	usage := CapacityUsage{Month: monthStart}

	var capacity models.ProductiveCapacity
	err := a.db.WithContext(ctx).Where("month = ?", monthStart).First(&capacity).Error
	switch {
	case err == nil:
		usage.CapacityTotal = capacity.MaxMonthly
	case errors.Is(err, gorm.ErrRecordNotFound):
		usage.CapacityTotal = a.defaultCapacityKg
		usage.Defaulted = true
	default:
		return usage, err
	}

	produced, err := a.WindowedSum(ctx, monthStart, monthEnd, 0)
	if err != nil {
		return usage, err
	}
	usage.Produced = produced
	if usage.CapacityTotal > 0 {
		usage.UtilizationPercent = round2(produced / usage.CapacityTotal * 100)
	}
	return usage, nil
}
