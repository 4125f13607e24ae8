package reviews_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"go-bakery/models"
	"go-bakery/reviews"
	"go-bakery/store"
	"go-bakery/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*reviews.Service, *store.MemoryStore, *utils.FakeClock) {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, models.CollectionOrders, "active", map[string]any{models.FieldReviewToken: "tok-active"}))
	require.NoError(t, st.Set(ctx, models.CollectionArchive, "done", map[string]any{models.FieldReviewToken: "tok-archived"}))

	clock := utils.NewFakeClock(time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC))
	return reviews.NewService(st, clock, zap.NewNop()), st, clock
}

func TestSubmit(t *testing.T) {
	svc, st, _ := setup(t)
	ctx := context.Background()

	review, err := svc.Submit(ctx, reviews.Submission{Token: " tok-archived ", Name: "Clara", Rating: 5, Text: "Wunderbar!"})
	require.NoError(t, err)
	assert.Equal(t, "done", review.OrderID)
	assert.Equal(t, models.ReviewPending, review.Status)

	stored, err := st.Get(ctx, models.CollectionReviews, review.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", stored.Data["status"])
	assert.Equal(t, "2024-07-01T12:00:00.000Z", stored.Data[models.FieldCreatedAt])
}

func TestSubmit_Rejections(t *testing.T) {
	tests := []struct {
		name string
		sub  reviews.Submission
	}{
		{"missing token", reviews.Submission{Rating: 4}},
		{"unknown token", reviews.Submission{Token: "nope", Rating: 4}},
		{"rating too low", reviews.Submission{Token: "tok-active", Rating: 0}},
		{"rating too high", reviews.Submission{Token: "tok-active", Rating: 6}},
		{"text too long", reviews.Submission{Token: "tok-active", Rating: 3, Text: strings.Repeat("x", 2001)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := setup(t)
			_, err := svc.Submit(context.Background(), tt.sub)
			assert.ErrorIs(t, err, models.ErrInvalidReview)
			assert.True(t, models.IsValidation(err))
		})
	}
}

func TestSubmit_TokenUsedOnce(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, reviews.Submission{Token: "tok-active", Rating: 4})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, reviews.Submission{Token: "tok-active", Rating: 1})
	assert.ErrorIs(t, err, models.ErrInvalidReview)
}

func TestApproveAndList(t *testing.T) {
	svc, _, clock := setup(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, reviews.Submission{Token: "tok-active", Name: "Anna", Rating: 4})
	require.NoError(t, err)
	clock.Set(clock.Now().Add(time.Hour))
	second, err := svc.Submit(ctx, reviews.Submission{Token: "tok-archived", Name: "Clara", Rating: 5})
	require.NoError(t, err)

	public, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, public)

	require.NoError(t, svc.Approve(ctx, first.ID))

	public, err = svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, first.ID, public[0].ID)
	assert.Equal(t, models.ReviewApproved, public[0].Status)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, 5, all[0].Rating)

	assert.ErrorIs(t, svc.Approve(ctx, "missing"), models.ErrNotFound)
}
