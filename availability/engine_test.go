package availability_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go-bakery/availability"
	"go-bakery/models"
	"go-bakery/store"
	"go-bakery/store/mock"
	"go-bakery/utils"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var berlin = mustLocation("Europe/Berlin")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func day(s string) time.Time {
	t, err := utils.ParseDay(s, berlin)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(t time.Time) *time.Time { return &t }

func newEngine(st store.Store, now time.Time) *availability.Engine {
	return availability.NewEngine(st, utils.NewFakeClock(now), berlin, zap.NewNop())
}

func TestMinimumAcceptableDate(t *testing.T) {
	today := time.Date(2024, 6, 1, 15, 30, 0, 0, berlin)

	min := availability.MinimumAcceptableDate(today, 7)
	assert.Equal(t, "2024-06-08", utils.FormatDay(min))
	assert.Equal(t, 0, min.Hour())

	assert.True(t, availability.IsTooEarly(day("2024-06-05"), today, 7))
	assert.True(t, availability.IsTooEarly(time.Date(2024, 6, 7, 23, 59, 0, 0, berlin), today, 7))
	assert.False(t, availability.IsTooEarly(day("2024-06-08"), today, 7))
	assert.False(t, availability.IsTooEarly(day("2024-06-01"), today, 0))
}

func TestCanAcceptByCapacity(t *testing.T) {
	tests := []struct {
		count, limit int
		accepted     bool
		remaining    int
	}{
		{count: 0, limit: 5, accepted: true, remaining: 5},
		{count: 4, limit: 5, accepted: true, remaining: 1},
		{count: 5, limit: 5, accepted: false, remaining: 0},
		{count: 7, limit: 5, accepted: false, remaining: 0},
		{count: 0, limit: 0, accepted: false, remaining: 0},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d of %d", test.count, test.limit), func(t *testing.T) {
			res := availability.CanAcceptByCapacity(test.count, test.limit)
			assert.Equal(t, test.accepted, res.Accepted)
			assert.Equal(t, test.remaining, res.Remaining)
			assert.Equal(t, test.count, res.CurrentCount)
			assert.Equal(t, test.limit, res.Limit)
		})
	}
}

func TestEngine_CanAcceptByLeadTime(t *testing.T) {
	e := newEngine(store.NewMemoryStore(), time.Date(2024, 6, 1, 9, 0, 0, 0, berlin))

	res := e.CanAcceptByLeadTime(day("2024-06-05"), 7)
	assert.False(t, res.Accepted)
	assert.Equal(t, "2024-06-08", res.MinimumDate)
	assert.Equal(t, availability.ReasonTooEarly, res.Reason)

	res = e.CanAcceptByLeadTime(day("2024-06-08"), 7)
	assert.True(t, res.Accepted)
	assert.Equal(t, availability.ReasonOK, res.Reason)
}

func seedCreated(t *testing.T, st store.Store, n int, at time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := st.Add(context.Background(), models.CollectionOrders, map[string]any{
			models.FieldCreatedAt: utils.ISOTimestamp(at.Add(time.Duration(i) * time.Minute)),
			models.FieldStatus:    "new",
		})
		require.NoError(t, err)
	}
}

func TestEngine_Evaluate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, berlin)
	cfg := availability.DefaultConfig()

	t.Run("date required", func(t *testing.T) {
		res, err := newEngine(store.NewMemoryStore(), now).Evaluate(context.Background(), nil, cfg)
		require.NoError(t, err)
		assert.False(t, res.Accepted)
		assert.Equal(t, availability.DecisionDateRequired, res.Decision)
		assert.Equal(t, availability.ReasonDateRequired, res.Reason)
	})

	t.Run("too early short-circuits capacity", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		// no expectations: any store call fails the test
		st := mock.NewMockStore(ctrl)

		res, err := newEngine(st, now).Evaluate(context.Background(), ptr(day("2024-06-05")), cfg)
		require.NoError(t, err)
		assert.Equal(t, availability.DecisionTooEarly, res.Decision)
		assert.Equal(t, "2024-06-08", res.MinimumDate)
		assert.Nil(t, res.CapacityResult)
	})

	t.Run("daily limit reached", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedCreated(t, st, 5, time.Date(2024, 6, 1, 8, 0, 0, 0, berlin))

		res, err := newEngine(st, now).Evaluate(context.Background(), ptr(day("2024-06-20")), cfg)
		require.NoError(t, err)
		assert.False(t, res.Accepted)
		assert.Equal(t, availability.DecisionCapacityFull, res.Decision)
		require.NotNil(t, res.CapacityResult)
		assert.Equal(t, 5, res.CurrentCount)
		assert.Equal(t, 0, res.Remaining)
	})

	t.Run("orders of other days do not count", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedCreated(t, st, 4, time.Date(2024, 6, 1, 8, 0, 0, 0, berlin))
		seedCreated(t, st, 3, time.Date(2024, 5, 31, 8, 0, 0, 0, berlin))
		_, err := st.Add(context.Background(), models.CollectionOrders, map[string]any{
			models.FieldCreatedAt: time.Date(2024, 6, 1, 10, 0, 0, 0, berlin),
		})
		require.NoError(t, err)

		res, err := newEngine(st, now).Evaluate(context.Background(), ptr(day("2024-06-20")), cfg)
		require.NoError(t, err)
		assert.False(t, res.Accepted)
		assert.Equal(t, 5, res.CurrentCount)
	})

	t.Run("accepted with remaining capacity", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedCreated(t, st, 2, time.Date(2024, 6, 1, 8, 0, 0, 0, berlin))

		res, err := newEngine(st, now).Evaluate(context.Background(), ptr(day("2024-06-20")), cfg)
		require.NoError(t, err)
		assert.True(t, res.Accepted)
		assert.Equal(t, availability.DecisionAccepted, res.Decision)
		assert.Equal(t, availability.ReasonOK, res.Reason)
		assert.Equal(t, 3, res.Remaining)
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := availability.Config{LeadDays: 7, DailyLimit: -1, Strategy: availability.ByCreationDate}
		res, err := newEngine(store.NewMemoryStore(), now).Evaluate(context.Background(), ptr(day("2024-06-20")), bad)
		assert.ErrorIs(t, err, models.ErrInvalidConfig)
		assert.False(t, res.Accepted)
	})
}

func TestEngine_EvaluateByDesiredDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, berlin)
	cfg := availability.Config{LeadDays: 7, DailyLimit: 3, Strategy: availability.ByDesiredDate}
	ctx := context.Background()

	st := store.NewMemoryStore()
	docs := []map[string]any{
		{models.FieldDesiredDate: "2024-06-20"},
		{models.FieldDesiredDate: map[string]any{"datum": time.Date(2024, 6, 20, 9, 0, 0, 0, berlin), "uhrzeit": "11:00"}},
		{models.FieldDesiredDate: map[string]any{"datum": "2024-06-20T10:00:00+02:00"}},
		{models.FieldDesiredDate: "2024-06-21"},
	}
	for _, d := range docs {
		_, err := st.Add(ctx, models.CollectionOrders, d)
		require.NoError(t, err)
	}

	e := newEngine(st, now)

	n, err := e.CountOrdersOnDate(ctx, day("2024-06-20"), availability.ByDesiredDate)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	res, err := e.Evaluate(ctx, ptr(day("2024-06-20")), cfg)
	require.NoError(t, err)
	assert.Equal(t, availability.DecisionCapacityFull, res.Decision)

	res, err = e.Evaluate(ctx, ptr(day("2024-06-21")), cfg)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 2, res.Remaining)
}

func TestEngine_CountByDesiredDateAcrossZoneShift(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	docs := []map[string]any{
		{models.FieldDesiredDate: map[string]any{"datum": "2024-06-30T23:30:00Z"}},
		{models.FieldDesiredDate: "2024-07-01"},
		{models.FieldDesiredDate: map[string]any{"datum": "2024-07-01T23:30:00Z"}},
	}
	for _, d := range docs {
		_, err := st.Add(ctx, models.CollectionOrders, d)
		require.NoError(t, err)
	}
	e := newEngine(st, time.Date(2024, 6, 1, 12, 0, 0, 0, berlin))

	n, err := e.CountOrdersOnDate(ctx, day("2024-07-01"), availability.ByDesiredDate)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = e.CountOrdersOnDate(ctx, day("2024-07-02"), availability.ByDesiredDate)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = e.CountOrdersOnDate(ctx, day("2024-06-30"), availability.ByDesiredDate)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEngine_StoreFailureIsNeverAccepted(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, berlin)
	outage := models.StoreUnavailable("query", models.CollectionOrders, errors.New("deadline exceeded"))

	for _, strategy := range []availability.Strategy{availability.ByCreationDate, availability.ByDesiredDate} {
		t.Run(string(strategy), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			st := mock.NewMockStore(ctrl)
			st.EXPECT().Query(gomock.Any(), gomock.Any()).Return(nil, outage).AnyTimes()

			cfg := availability.Config{LeadDays: 7, DailyLimit: 5, Strategy: strategy}
			res, err := newEngine(st, now).Evaluate(context.Background(), ptr(day("2024-06-20")), cfg)

			assert.ErrorIs(t, err, models.ErrStoreUnavailable)
			assert.False(t, res.Accepted)
			assert.Equal(t, availability.DecisionUnknown, res.Decision)
			assert.Equal(t, availability.ReasonUnknown, res.Reason)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, availability.DefaultConfig().Validate())
	assert.ErrorIs(t, availability.Config{LeadDays: -1, Strategy: availability.ByCreationDate}.Validate(), models.ErrInvalidConfig)
	assert.ErrorIs(t, availability.Config{Strategy: "weekly"}.Validate(), models.ErrInvalidConfig)
}
