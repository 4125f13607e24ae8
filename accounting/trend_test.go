package accounting_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-bakery/accounting"
	"go-bakery/models"
	"go-bakery/store"
	"go-bakery/store/mock"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTrend(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		previous float64
		want     accounting.TrendResult
	}{
		{"growth", 150, 100, accounting.TrendResult{PercentText: "+50%", Direction: accounting.DirectionUp}},
		{"decline", 80, 100, accounting.TrendResult{PercentText: "-20%", Direction: accounting.DirectionDown}},
		{"below one percent", 100.4, 100, accounting.TrendResult{PercentText: "0%", Direction: accounting.DirectionNeutral}},
		{"rounds up but stays neutral", 100.7, 100, accounting.TrendResult{PercentText: "+1%", Direction: accounting.DirectionNeutral}},
		{"one percent", 101, 100, accounting.TrendResult{PercentText: "+1%", Direction: accounting.DirectionUp}},
		{"flat", 100, 100, accounting.TrendResult{PercentText: "0%", Direction: accounting.DirectionNeutral}},
		{"from zero", 10, 0, accounting.TrendResult{PercentText: "+100%", Direction: accounting.DirectionUp}},
		{"zero to zero", 0, 0, accounting.TrendResult{PercentText: "0%", Direction: accounting.DirectionNeutral}},
		{"to zero", 0, 40, accounting.TrendResult{PercentText: "-100%", Direction: accounting.DirectionDown}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, accounting.Trend(tt.current, tt.previous))
		})
	}
}

func TestReport_AcrossYearBoundary(t *testing.T) {
	st := store.NewMemoryStore()
	put(t, st, models.CollectionOrders, "dec1", order("2023-12-10T10:00:00.000Z", float64(100), nil))
	put(t, st, models.CollectionOrders, "jan1", order("2024-01-10T10:00:00.000Z", float64(150), nil))
	put(t, st, models.CollectionArchive, "jan2", order("2024-01-11T10:00:00.000Z", float64(0), nil))

	report, err := accounting.NewRevenueAggregator(st, time.UTC, zap.NewNop()).Report(context.Background(), 2024, time.January)
	require.NoError(t, err)

	assert.Equal(t, "2024-01", report.Current.Period)
	assert.Equal(t, "2023-12", report.Previous.Period)
	assert.Equal(t, accounting.TrendResult{PercentText: "+50%", Direction: accounting.DirectionUp}, report.RevenueTrend)
	assert.Equal(t, accounting.TrendResult{PercentText: "+100%", Direction: accounting.DirectionUp}, report.OrdersTrend)
}

func TestReport_PreviousMonthFailureFailsReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mock.NewMockStore(ctrl)
	st.EXPECT().Query(gomock.Any(), gomock.Any()).
		Return(nil, models.StoreUnavailable("query", models.CollectionOrders, errors.New("unavailable"))).
		AnyTimes()

	report, err := accounting.NewRevenueAggregator(st, time.UTC, zap.NewNop()).Report(context.Background(), 2024, time.March)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.Nil(t, report)
}
