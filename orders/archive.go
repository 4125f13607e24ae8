package orders

import (
	"context"
	"errors"
	"fmt"

	"go-bakery/models"
	"go-bakery/store"
	"go-bakery/utils"

	"go.uber.org/zap"
)

// Archive moves an order from the active to the archive collection in one
// atomic batch. On failure the active order is untouched.
func (s *Service) Archive(ctx context.Context, id string) error {
	rec, err := s.store.Get(ctx, models.CollectionOrders, id)
	if err != nil {
		return err
	}

	data := make(map[string]any, len(rec.Data)+1)
	for k, v := range rec.Data {
		data[k] = v
	}
	data[models.FieldArchivedAt] = utils.ISOTimestamp(s.clock.Now())

	ops := []store.WriteOp{
		store.SetOp(models.CollectionArchive, id, data),
		store.DeleteOp(models.CollectionOrders, id),
	}
	if err := s.store.BatchWrite(ctx, ops); err != nil {
		s.logger.Error("archive move failed", zap.String("order", id), zap.Error(err))
		return fmt.Errorf("%w: order %s: %w", models.ErrPartialArchive, id, err)
	}

	s.logger.Info("order archived", zap.String("order", id))
	if s.calendar != nil {
		if day, err := models.NormalizeDesiredDate(rec.Data, s.loc); err == nil {
			s.calendar.Invalidate(ctx, day)
		}
	}
	return nil
}

// archivable statuses end the lifecycle of an order.
var archivable = map[models.Status]bool{
	models.StatusPickedUp: true,
	models.StatusRejected: true,
	models.StatusArchived: true,
}

// SweepArchive archives finished orders whose desired date lies more than
// ArchiveAfterDays in the past. Orders moved by a concurrent sweep are skipped.
func (s *Service) SweepArchive(ctx context.Context) (int, error) {
	records, err := s.store.Query(ctx, store.Query{Collection: models.CollectionOrders})
	if err != nil {
		return 0, err
	}

	cutoff := utils.FormatDay(utils.DaysAhead(s.clock.Now().In(s.loc), -s.cfg.ArchiveAfterDays))

	var errs []error
	moved := 0
	for _, rec := range records {
		raw, _ := rec.Data[models.FieldStatus].(string)
		status, _ := models.NormalizeStatus(raw)
		if !archivable[status] {
			continue
		}
		day, err := models.NormalizeDesiredDate(rec.Data, s.loc)
		if err != nil || day >= cutoff {
			continue
		}

		if err := s.Archive(ctx, rec.ID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		moved++
	}

	if moved > 0 || len(errs) > 0 {
		s.logger.Info("archive sweep finished", zap.Int("archived", moved), zap.Int("failed", len(errs)))
	}
	return moved, errors.Join(errs...)
}
