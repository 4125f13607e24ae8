package orders

import (
	"context"
	"errors"

	"go-bakery/models"
	"go-bakery/store"
	"go-bakery/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PollNewOrders records a notification for every order created since the last
// poll and emails the admin once per order. Concurrent polls may see the same
// order; the notification id is derived from the order id and only the poll
// whose create succeeds sends the email. It returns the number of new notifications.
func (s *Service) PollNewOrders(ctx context.Context) (int, error) {
	s.mu.Lock()
	since := s.watermark
	s.mu.Unlock()

	records, err := s.store.Query(ctx, store.Query{
		Collection: models.CollectionOrders,
		Filters:    []store.Filter{store.Where(models.FieldCreatedAt, store.OpGte, since)},
		OrderBy:    models.FieldCreatedAt,
	})
	if err != nil {
		return 0, err
	}

	created := 0
	latest := since
	for _, rec := range records {
		if ts, _ := rec.Data[models.FieldCreatedAt].(string); ts > latest {
			latest = ts
		}

		nid := models.NotificationIDFor(rec.ID)
		order := models.DecodeOrder(rec.ID, rec.Data, s.loc)
		n := models.Notification{
			ID:           nid,
			OrderID:      order.ID,
			CustomerName: order.CustomerName,
			DesiredDate:  order.DesiredDate,
		}
		err := s.store.Create(ctx, models.CollectionNotifications, nid, n.Document(utils.ISOTimestamp(s.clock.Now())))
		if errors.Is(err, models.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++

		vars := customerVars(&order)
		vars[utils.VarToEmail] = s.cfg.AdminEmail
		vars[utils.VarToName] = "Admin"
		if err := s.email.Send(ctx, s.cfg.EmailService, s.cfg.Templates.AdminNewOrder, vars); err != nil {
			s.logger.Error("admin notification email not sent", zap.String("order", order.ID), zap.Error(err))
		}
	}

	s.mu.Lock()
	if latest > s.watermark {
		s.watermark = latest
	}
	s.mu.Unlock()

	if created > 0 {
		s.logger.Info("new orders notified", zap.Int("count", created))
	}
	return created, nil
}

// ListNotifications returns the admin notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	records, err := s.store.Query(ctx, store.Query{
		Collection: models.CollectionNotifications,
		OrderBy:    models.FieldCreatedAt,
		Descending: true,
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.Notification, 0, len(records))
	for _, rec := range records {
		out = append(out, models.DecodeNotification(rec.ID, rec.Data))
	}
	return out, nil
}

// RequestReview issues a fresh review token on an active or archived order and
// emails it to the customer.
func (s *Service) RequestReview(ctx context.Context, id string) (*Outcome, error) {
	collection := models.CollectionOrders
	rec, err := s.store.Get(ctx, collection, id)
	if errors.Is(err, models.ErrNotFound) {
		collection = models.CollectionArchive
		rec, err = s.store.Get(ctx, collection, id)
	}
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	if err := s.store.Update(ctx, collection, id, map[string]any{models.FieldReviewToken: token}); err != nil {
		return nil, err
	}

	order := models.DecodeOrder(rec.ID, rec.Data, s.loc)
	order.ReviewToken = token

	vars := customerVars(&order)
	vars["review_token"] = token

	out := &Outcome{Order: &order}
	s.notify(ctx, out, s.cfg.Templates.ReviewRequest, vars)
	return out, nil
}
