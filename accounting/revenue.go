// Package accounting computes revenue and categorical statistics over orders.
package accounting

import (
	"context"
	"fmt"
	"time"

	"go-bakery/calendar"
	"go-bakery/models"
	"go-bakery/store"
	"go-bakery/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var monthNames = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// MonthName returns the German display name of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// Bucket is one row of a breakdown.
type Bucket struct {
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// MonthBucket is one month of a yearly report.
type MonthBucket struct {
	Month     int     `json:"month"`
	MonthName string  `json:"monthName"`
	Revenue   float64 `json:"revenue"`
	Orders    int     `json:"orders"`
}

// Stats is the revenue report of a month or a year. Money is rounded half away
// from zero to cents once, after all sums are taken.
type Stats struct {
	Year              int               `json:"year"`
	Month             int               `json:"month,omitempty"`
	MonthName         string            `json:"monthName,omitempty"`
	Period            string            `json:"period"`
	TotalRevenue      float64           `json:"totalRevenue"`
	OrderCount        int               `json:"orderCount"`
	AverageOrderValue float64           `json:"averageOrderValue"`
	CategoryBreakdown map[string]Bucket `json:"categoryBreakdown"`
	StatusBreakdown   map[string]Bucket `json:"statusBreakdown"`
	SizeBreakdown     map[string]Bucket `json:"sizeBreakdown"`
	OccasionBreakdown map[string]Bucket `json:"occasionBreakdown"`
	Months            []MonthBucket     `json:"months,omitempty"`
	InvalidPrices     int               `json:"invalidPrices"`
	UnknownStatuses   int               `json:"unknownStatuses"`
}

type bucketSum struct {
	count   int
	revenue decimal.Decimal
}

type breakdown map[string]*bucketSum

func (b breakdown) add(key string, price decimal.Decimal) {
	s, ok := b[key]
	if !ok {
		s = &bucketSum{}
		b[key] = s
	}
	s.count++
	s.revenue = s.revenue.Add(price)
}

func (b breakdown) rounded() map[string]Bucket {
	out := make(map[string]Bucket, len(b))
	for k, s := range b {
		out[k] = Bucket{Count: s.count, Revenue: cents(s.revenue)}
	}
	return out
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

type accumulator struct {
	total           decimal.Decimal
	count           int
	category        breakdown
	status          breakdown
	size            breakdown
	occasion        breakdown
	months          [12]bucketSum
	invalidPrices   int
	unknownStatuses int
}

func newAccumulator() *accumulator {
	return &accumulator{
		category: breakdown{},
		status:   breakdown{},
		size:     breakdown{},
		occasion: breakdown{},
	}
}

// RevenueAggregator reads orders of both the active and the archived collection.
type RevenueAggregator struct {
	store  store.Store
	loc    *time.Location
	logger *zap.Logger
}

func NewRevenueAggregator(st store.Store, loc *time.Location, logger *zap.Logger) *RevenueAggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &RevenueAggregator{store: st, loc: loc, logger: logger}
}

// MonthlyStats reports the orders created in the month.
func (r *RevenueAggregator) MonthlyStats(ctx context.Context, year int, month time.Month) (*Stats, error) {
	if month < time.January || month > time.December {
		return nil, models.NewValidationError("month", fmt.Sprintf("month %d out of range", month))
	}

	start, end := utils.MonthBounds(year, month, r.loc)
	acc, err := r.collect(ctx, start, end)
	if err != nil {
		return nil, err
	}

	stats := acc.stats()
	stats.Year = year
	stats.Month = int(month)
	stats.MonthName = MonthName(month)
	stats.Period = fmt.Sprintf("%04d-%02d", year, month)
	return stats, nil
}

// YearlyStats reports the orders created in the year with a row for every month.
func (r *RevenueAggregator) YearlyStats(ctx context.Context, year int) (*Stats, error) {
	start, _ := utils.MonthBounds(year, time.January, r.loc)
	_, end := utils.MonthBounds(year, time.December, r.loc)
	acc, err := r.collect(ctx, start, end)
	if err != nil {
		return nil, err
	}

	stats := acc.stats()
	stats.Year = year
	stats.Period = fmt.Sprintf("%04d", year)
	stats.Months = make([]MonthBucket, 12)
	for i := range acc.months {
		m := time.Month(i + 1)
		stats.Months[i] = MonthBucket{
			Month:     int(m),
			MonthName: MonthName(m),
			Revenue:   cents(acc.months[i].revenue),
			Orders:    acc.months[i].count,
		}
	}
	return stats, nil
}

func (r *RevenueAggregator) collect(ctx context.Context, start, end time.Time) (*accumulator, error) {
	records, err := r.loadCreatedBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	acc := newAccumulator()
	for _, rec := range records {
		r.accumulate(acc, rec)
	}
	return acc, nil
}

// loadCreatedBetween reads active and archived orders whose createdAt is stored
// either as ISO string or as native timestamp. An order present in both
// collections is read once.
func (r *RevenueAggregator) loadCreatedBetween(ctx context.Context, start, end time.Time) ([]store.Record, error) {
	var queries []store.Query
	for _, collection := range []string{models.CollectionOrders, models.CollectionArchive} {
		queries = append(queries,
			store.Query{Collection: collection, Filters: []store.Filter{
				store.Where(models.FieldCreatedAt, store.OpGte, utils.ISOTimestamp(start)),
				store.Where(models.FieldCreatedAt, store.OpLte, utils.ISOTimestamp(end)),
			}},
			store.Query{Collection: collection, Filters: []store.Filter{
				store.Where(models.FieldCreatedAt, store.OpGte, start),
				store.Where(models.FieldCreatedAt, store.OpLte, end),
			}},
		)
	}

	results := make([][]store.Record, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			recs, err := r.store.Query(gctx, q)
			results[i] = recs
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return calendar.MergeByID(results...), nil
}

func (r *RevenueAggregator) accumulate(acc *accumulator, rec store.Record) {
	price, ok := models.CoercePrice(rec.Data)
	if !ok {
		acc.invalidPrices++
		r.logger.Warn("unparseable price counted as 0", zap.String("order", rec.ID))
	}

	order := models.DecodeOrder(rec.ID, rec.Data, r.loc)
	raw, _ := rec.Data[models.FieldStatus].(string)
	status, known := models.NormalizeStatus(raw)
	if !known {
		acc.unknownStatuses++
		r.logger.Warn("unrecognized status counted as new",
			zap.String("order", rec.ID), zap.String("status", raw))
	}

	acc.total = acc.total.Add(price)
	acc.count++
	acc.status.add(string(status), price)
	acc.size.add(string(order.Details.SizeCategory), price)
	acc.category.add(models.ExtrasTier(len(order.Details.Extras)), price)
	acc.occasion.add(order.Occasion, price)

	if !order.CreatedAt.IsZero() {
		m := &acc.months[order.CreatedAt.In(r.loc).Month()-1]
		m.count++
		m.revenue = m.revenue.Add(price)
	}
}

func (a *accumulator) stats() *Stats {
	avg := decimal.Zero
	if a.count > 0 {
		avg = a.total.Div(decimal.NewFromInt(int64(a.count)))
	}
	return &Stats{
		TotalRevenue:      cents(a.total),
		OrderCount:        a.count,
		AverageOrderValue: cents(avg),
		CategoryBreakdown: a.category.rounded(),
		StatusBreakdown:   a.status.rounded(),
		SizeBreakdown:     a.size.rounded(),
		OccasionBreakdown: a.occasion.rounded(),
		InvalidPrices:     a.invalidPrices,
		UnknownStatuses:   a.unknownStatuses,
	}
}
