package accounting

import (
	"context"
	"fmt"
	"math"
	"time"

	"go-bakery/utils"

	"golang.org/x/sync/errgroup"
)

type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionNeutral Direction = "neutral"
)

// TrendResult is a period-over-period change for display.
type TrendResult struct {
	PercentText string    `json:"percentText"`
	Direction   Direction `json:"direction"`
}

// Trend compares current against previous. Changes under one percent are neutral.
// Direction is taken from the exact change and the text from the rounded one, so
// a change between 0.5% and 1% reads "+1%" with a neutral direction.
func Trend(current, previous float64) TrendResult {
	if previous == 0 {
		if current > 0 {
			return TrendResult{PercentText: "+100%", Direction: DirectionUp}
		}
		return TrendResult{PercentText: "0%", Direction: DirectionNeutral}
	}

	percent := (current - previous) / previous * 100
	rounded := int(math.Round(percent))

	res := TrendResult{PercentText: fmt.Sprintf("%d%%", rounded)}
	switch {
	case math.Abs(percent) < 1:
		res.Direction = DirectionNeutral
	case percent > 0:
		res.Direction = DirectionUp
	default:
		res.Direction = DirectionDown
	}
	if rounded > 0 {
		res.PercentText = "+" + res.PercentText
	}
	return res
}

// Report joins a month with the month before it.
type Report struct {
	Current      *Stats      `json:"current"`
	Previous     *Stats      `json:"previous"`
	RevenueTrend TrendResult `json:"revenueTrend"`
	OrdersTrend  TrendResult `json:"ordersTrend"`
}

// Report computes both months concurrently; either failing fails the report.
func (r *RevenueAggregator) Report(ctx context.Context, year int, month time.Month) (*Report, error) {
	prevYear, prevMonth := utils.PreviousMonth(year, month)

	var current, previous *Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = r.MonthlyStats(gctx, year, month)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = r.MonthlyStats(gctx, prevYear, prevMonth)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Report{
		Current:      current,
		Previous:     previous,
		RevenueTrend: Trend(current.TotalRevenue, previous.TotalRevenue),
		OrdersTrend:  Trend(float64(current.OrderCount), float64(previous.OrderCount)),
	}, nil
}
