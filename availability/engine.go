// Package availability decides whether a new order may be accepted for a
// desired date under two independent rules: minimum lead time and daily capacity.
package availability

import (
	"context"
	"fmt"
	"time"

	"go-bakery/calendar"
	"go-bakery/models"
	"go-bakery/store"
	"go-bakery/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Strategy is the counting basis of the capacity rule.
type Strategy string

const (
	// ByCreationDate caps the number of orders placed per day.
	ByCreationDate Strategy = "created"
	// ByDesiredDate caps the number of orders fulfilled per day.
	ByDesiredDate Strategy = "desired"
)

func (s Strategy) Valid() bool {
	return s == ByCreationDate || s == ByDesiredDate
}

const (
	DefaultLeadDays   = 7
	DefaultDailyLimit = 5
)

// Config holds the tunable rule constants.
type Config struct {
	LeadDays   int      `json:"leadDays"`
	DailyLimit int      `json:"dailyLimit"`
	Strategy   Strategy `json:"strategy"`
}

func DefaultConfig() Config {
	return Config{LeadDays: DefaultLeadDays, DailyLimit: DefaultDailyLimit, Strategy: ByCreationDate}
}

// Validate rejects configurations that can only come from a programming error.
func (c Config) Validate() error {
	if c.LeadDays < 0 {
		return fmt.Errorf("%w: negative lead days %d", models.ErrInvalidConfig, c.LeadDays)
	}
	if c.DailyLimit < 0 {
		return fmt.Errorf("%w: negative daily limit %d", models.ErrInvalidConfig, c.DailyLimit)
	}
	if !c.Strategy.Valid() {
		return fmt.Errorf("%w: unknown capacity strategy %q", models.ErrInvalidConfig, c.Strategy)
	}
	return nil
}

// Decision is the outcome of an evaluation.
type Decision string

const (
	DecisionAccepted     Decision = "accepted"
	DecisionDateRequired Decision = "date-required"
	DecisionTooEarly     Decision = "too-early"
	DecisionCapacityFull Decision = "capacity-full"
	DecisionUnknown      Decision = "unknown"
)

// Reasons shown to customers.
const (
	ReasonOK           = "OK"
	ReasonDateRequired = "Please choose a desired date for your order."
	ReasonTooEarly     = "The desired date is earlier than our minimum lead time allows."
	ReasonCapacityFull = "We are fully booked on this date. Please choose another day."
	ReasonUnknown      = "Availability could not be checked right now. Please try again."
)

// LeadTimeResult is the outcome of the lead-time rule.
type LeadTimeResult struct {
	Accepted    bool   `json:"accepted"`
	MinimumDate string `json:"minimumDate"`
	Reason      string `json:"reason"`
}

// CapacityResult is the outcome of the capacity rule.
type CapacityResult struct {
	Accepted     bool `json:"-"`
	CurrentCount int  `json:"currentCount"`
	Limit        int  `json:"limit"`
	Remaining    int  `json:"remaining"`
}

// Result is the composite evaluation. Capacity fields are present only when the
// capacity rule ran.
type Result struct {
	Accepted    bool     `json:"accepted"`
	Decision    Decision `json:"decision"`
	Reason      string   `json:"reason"`
	MinimumDate string   `json:"minimumDate,omitempty"`
	*CapacityResult
}

// MinimumAcceptableDate is midnight of today plus leadDays.
func MinimumAcceptableDate(today time.Time, leadDays int) time.Time {
	return utils.DaysAhead(today, leadDays)
}

// IsTooEarly compares calendar days only; candidate's time of day is ignored.
func IsTooEarly(candidate, today time.Time, leadDays int) bool {
	day := utils.InLocation(candidate, today.Location())
	return day.Before(MinimumAcceptableDate(today, leadDays))
}

// CanAcceptByCapacity accepts iff count < limit.
func CanAcceptByCapacity(count, limit int) CapacityResult {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return CapacityResult{
		Accepted:     count < limit,
		CurrentCount: count,
		Limit:        limit,
		Remaining:    remaining,
	}
}

// Engine evaluates candidates against the live order store.
type Engine struct {
	store  store.Store
	clock  utils.Clock
	loc    *time.Location
	logger *zap.Logger
}

func NewEngine(st store.Store, clock utils.Clock, loc *time.Location, logger *zap.Logger) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{store: st, clock: clock, loc: loc, logger: logger}
}

// Location is the calendar time zone of the engine.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Today is midnight of the current day in the engine's location.
func (e *Engine) Today() time.Time {
	return utils.StartOfDay(e.clock.Now().In(e.loc))
}

func (e *Engine) CanAcceptByLeadTime(candidate time.Time, leadDays int) LeadTimeResult {
	today := e.Today()
	res := LeadTimeResult{
		Accepted:    !IsTooEarly(candidate, today, leadDays),
		MinimumDate: utils.FormatDay(MinimumAcceptableDate(today, leadDays)),
		Reason:      ReasonOK,
	}
	if !res.Accepted {
		res.Reason = ReasonTooEarly
	}
	return res
}

// CountOrdersOnDate counts active orders created on date (ByCreationDate) or
// wanted on date (ByDesiredDate). Orders of every status count.
func (e *Engine) CountOrdersOnDate(ctx context.Context, date time.Time, strategy Strategy) (int, error) {
	date = utils.InLocation(date, e.loc)

	switch strategy {
	case ByCreationDate:
		return e.countByCreation(ctx, date)
	case ByDesiredDate:
		return e.countByDesired(ctx, date)
	default:
		return 0, fmt.Errorf("%w: unknown capacity strategy %q", models.ErrInvalidConfig, strategy)
	}
}

// countByCreation matches createdAt stored as ISO string or as native timestamp.
func (e *Engine) countByCreation(ctx context.Context, date time.Time) (int, error) {
	start, end := utils.StartOfDay(date), utils.EndOfDay(date)
	queries := []store.Query{
		{Collection: models.CollectionOrders, Filters: []store.Filter{
			store.Where(models.FieldCreatedAt, store.OpGte, utils.ISOTimestamp(start)),
			store.Where(models.FieldCreatedAt, store.OpLte, utils.ISOTimestamp(end)),
		}},
		{Collection: models.CollectionOrders, Filters: []store.Filter{
			store.Where(models.FieldCreatedAt, store.OpGte, start),
			store.Where(models.FieldCreatedAt, store.OpLte, end),
		}},
	}

	results := make([][]store.Record, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			recs, err := e.store.Query(gctx, q)
			results[i] = recs
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(calendar.MergeByID(results...)), nil
}

func (e *Engine) countByDesired(ctx context.Context, date time.Time) (int, error) {
	records, err := calendar.LoadByDesiredDate(ctx, e.store, models.CollectionOrders, date, date)
	if err != nil {
		return 0, err
	}

	day := utils.FormatDay(date)
	n := 0
	for _, rec := range records {
		if d, err := models.NormalizeDesiredDate(rec.Data, e.loc); err == nil && d == day {
			n++
		}
	}
	return n, nil
}

// Evaluate runs lead time first and capacity second. ByCreationDate counts the
// orders placed today, ByDesiredDate those wanted on the candidate day. A nil
// candidate is rejected outright. A store failure yields DecisionUnknown together
// with the error and is never reported as accepted. The only other error is an
// invalid cfg.
func (e *Engine) Evaluate(ctx context.Context, candidate *time.Time, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{Decision: DecisionUnknown, Reason: ReasonUnknown}, err
	}
	if candidate == nil {
		return Result{Decision: DecisionDateRequired, Reason: ReasonDateRequired}, nil
	}

	lead := e.CanAcceptByLeadTime(*candidate, cfg.LeadDays)
	if !lead.Accepted {
		return Result{
			Decision:    DecisionTooEarly,
			Reason:      lead.Reason,
			MinimumDate: lead.MinimumDate,
		}, nil
	}

	// the creation-date cap limits how many orders are placed today
	day := *candidate
	if cfg.Strategy == ByCreationDate {
		day = e.Today()
	}

	count, err := e.CountOrdersOnDate(ctx, day, cfg.Strategy)
	if err != nil {
		e.logger.Error("availability unknown",
			zap.String("date", utils.FormatDay(day)),
			zap.String("strategy", string(cfg.Strategy)),
			zap.Error(err))
		return Result{
			Decision:    DecisionUnknown,
			Reason:      ReasonUnknown,
			MinimumDate: lead.MinimumDate,
		}, fmt.Errorf("count orders on %s: %w", utils.FormatDay(day), err)
	}

	capacity := CanAcceptByCapacity(count, cfg.DailyLimit)
	res := Result{
		Accepted:       capacity.Accepted,
		Decision:       DecisionAccepted,
		Reason:         ReasonOK,
		MinimumDate:    lead.MinimumDate,
		CapacityResult: &capacity,
	}
	if !res.Accepted {
		res.Decision = DecisionCapacityFull
		res.Reason = ReasonCapacityFull
	}
	return res, nil
}
