package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-bakery/models"
	"go-bakery/store"
	"go-bakery/utils"

	"go.uber.org/zap"
)

// Result sources.
const (
	SourceStrict   = "strict"
	SourceFallback = "fallback"
)

// DefaultScanLimit bounds the fallback full-collection scan.
const DefaultScanLimit = 1000

// Config controls the monthly aggregation.
type Config struct {
	Collection string
	Location   *time.Location
	Fallback   bool
	ScanLimit  int
}

// MonthResult buckets the orders of a month by their canonical desired day.
type MonthResult struct {
	Year     int                              `json:"year"`
	Month    time.Month                       `json:"month"`
	Counts   map[string]int                   `json:"counts"`
	Details  map[string][]models.OrderSummary `json:"details,omitempty"`
	Excluded int                              `json:"excluded"`
	Source   string                           `json:"source"`
}

// Aggregator produces month results.
type Aggregator interface {
	Aggregate(ctx context.Context, year int, month time.Month) (*MonthResult, error)
}

// MonthlyAggregator reconciles the historical desired-date shapes into day buckets.
type MonthlyAggregator struct {
	store  store.Store
	cfg    Config
	logger *zap.Logger
}

// NewMonthlyAggregator creates an aggregator; zero config values take defaults.
func NewMonthlyAggregator(st store.Store, cfg Config, logger *zap.Logger) *MonthlyAggregator {
	if cfg.Collection == "" {
		cfg.Collection = models.CollectionOrders
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = DefaultScanLimit
	}
	return &MonthlyAggregator{store: st, cfg: cfg, logger: logger}
}

// Aggregate returns per-day counts and summaries for the month. A store failure is
// returned as an error and never as an empty month.
func (a *MonthlyAggregator) Aggregate(ctx context.Context, year int, month time.Month) (*MonthResult, error) {
	if month < time.January || month > time.December {
		return nil, models.NewValidationError("month", fmt.Sprintf("month %d out of range", month))
	}

	start, end := utils.MonthBounds(year, month, a.cfg.Location)
	records, err := LoadByDesiredDate(ctx, a.store, a.cfg.Collection, start, end)
	if err != nil {
		return nil, err
	}

	result := newMonthResult(year, month, SourceStrict)
	startDay, endDay := utils.FormatDay(start), utils.FormatDay(end)

	inMonth := 0
	for _, rec := range records {
		day, err := models.NormalizeDesiredDate(rec.Data, a.cfg.Location)
		if err != nil {
			if errors.Is(err, models.ErrAmbiguousDateShape) {
				inMonth++
				result.Excluded++
				a.logger.Warn("order excluded from calendar",
					zap.String("order", rec.ID), zap.Error(err))
			}
			continue
		}
		if day < startDay || day > endDay {
			continue
		}
		inMonth++
		order := models.DecodeOrder(rec.ID, rec.Data, a.cfg.Location)
		result.add(day, order.Summary())
	}

	if inMonth == 0 && a.cfg.Fallback {
		return a.fallbackScan(ctx, year, month)
	}

	return result, nil
}

func newMonthResult(year int, month time.Month, source string) *MonthResult {
	return &MonthResult{
		Year:    year,
		Month:   month,
		Counts:  make(map[string]int),
		Details: make(map[string][]models.OrderSummary),
		Source:  source,
	}
}

func (r *MonthResult) add(day string, summary models.OrderSummary) {
	r.Counts[day]++
	r.Details[day] = append(r.Details[day], summary)
}

// Total is the number of orders bucketed in the month.
func (r *MonthResult) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// WithoutDetails returns a copy carrying counts only, for public views.
func (r *MonthResult) WithoutDetails() *MonthResult {
	counts := make(map[string]int, len(r.Counts))
	for k, v := range r.Counts {
		counts[k] = v
	}
	return &MonthResult{
		Year:     r.Year,
		Month:    r.Month,
		Counts:   counts,
		Excluded: r.Excluded,
		Source:   r.Source,
	}
}
