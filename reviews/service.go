// Package reviews collects customer ratings through emailed review tokens.
package reviews

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-bakery/models"
	"go-bakery/store"
	"go-bakery/utils"

	"go.uber.org/zap"
)

const (
	MinRating     = 1
	MaxRating     = 5
	maxTextLength = 2000
)

// Submission is the public review form.
type Submission struct {
	Token  string `json:"token"`
	Name   string `json:"name"`
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

type Service struct {
	store  store.Store
	clock  utils.Clock
	logger *zap.Logger
}

func NewService(st store.Store, clock utils.Clock, logger *zap.Logger) *Service {
	return &Service{store: st, clock: clock, logger: logger}
}

// Submit stores a pending review for the order the token was issued to. A token
// is good for one review.
func (s *Service) Submit(ctx context.Context, sub Submission) (*models.Review, error) {
	sub.Token = strings.TrimSpace(sub.Token)
	if sub.Token == "" {
		return nil, invalid("token", "review link is missing its token")
	}
	if sub.Rating < MinRating || sub.Rating > MaxRating {
		return nil, invalid("rating", fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}
	if len(sub.Text) > maxTextLength {
		return nil, invalid("text", "review text is too long")
	}

	orderID, err := s.orderForToken(ctx, sub.Token)
	if err != nil {
		return nil, err
	}

	used, err := s.store.Query(ctx, store.Query{
		Collection: models.CollectionReviews,
		Filters:    []store.Filter{store.Where("orderId", store.OpEq, orderID)},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(used) > 0 {
		return nil, invalid("token", "this order has already been reviewed")
	}

	review := models.Review{
		OrderID:   orderID,
		Name:      strings.TrimSpace(sub.Name),
		Rating:    sub.Rating,
		Text:      strings.TrimSpace(sub.Text),
		Status:    models.ReviewPending,
		CreatedAt: s.clock.Now().UTC().Truncate(time.Millisecond),
	}
	id, err := s.store.Add(ctx, models.CollectionReviews, review.Document(utils.ISOTimestamp(review.CreatedAt)))
	if err != nil {
		return nil, err
	}
	review.ID = id

	s.logger.Info("review submitted", zap.String("review", id), zap.String("order", orderID), zap.Int("rating", sub.Rating))
	return &review, nil
}

func (s *Service) orderForToken(ctx context.Context, token string) (string, error) {
	for _, collection := range []string{models.CollectionOrders, models.CollectionArchive} {
		recs, err := s.store.Query(ctx, store.Query{
			Collection: collection,
			Filters:    []store.Filter{store.Where(models.FieldReviewToken, store.OpEq, token)},
			Limit:      1,
		})
		if err != nil {
			return "", err
		}
		if len(recs) > 0 {
			return recs[0].ID, nil
		}
	}
	return "", invalid("token", "review link is not valid")
}

// Approve publishes a review.
func (s *Service) Approve(ctx context.Context, id string) error {
	return s.store.Update(ctx, models.CollectionReviews, id, map[string]any{"status": string(models.ReviewApproved)})
}

// List returns reviews newest first, only approved ones when approvedOnly is set.
func (s *Service) List(ctx context.Context, approvedOnly bool) ([]models.Review, error) {
	q := store.Query{
		Collection: models.CollectionReviews,
		OrderBy:    models.FieldCreatedAt,
		Descending: true,
	}
	if approvedOnly {
		q.Filters = []store.Filter{store.Where("status", store.OpEq, string(models.ReviewApproved))}
	}

	records, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]models.Review, 0, len(records))
	for _, rec := range records {
		out = append(out, models.DecodeReview(rec.ID, rec.Data))
	}
	return out, nil
}

func invalid(field, msg string) error {
	return fmt.Errorf("%w: %w", models.ErrInvalidReview, models.NewValidationError(field, msg))
}
