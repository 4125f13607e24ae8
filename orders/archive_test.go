package orders_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-bakery/models"
	"go-bakery/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingBatchStore refuses every batch write.
type failingBatchStore struct {
	*store.MemoryStore
}

func (failingBatchStore) BatchWrite(context.Context, []store.WriteOp) error {
	return models.StoreUnavailable("batch", "", errors.New("deadline exceeded"))
}

func seedOrder(t *testing.T, st *store.MemoryStore, id, status, day string) {
	t.Helper()
	require.NoError(t, st.Set(context.Background(), models.CollectionOrders, id, map[string]any{
		models.FieldCustomerName: "Ben",
		models.FieldStatus:       status,
		models.FieldDesiredDate:  day,
		models.FieldCreatedAt:    "2024-06-01T09:00:00.000Z",
	}))
}

func TestArchive_MovesOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	seedOrder(t, f.memory, "o1", "abgeholt", "2024-06-20")

	require.NoError(t, f.svc.Archive(ctx, "o1"))

	_, err := f.memory.Get(ctx, models.CollectionOrders, "o1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	archived, err := f.memory.Get(ctx, models.CollectionArchive, "o1")
	require.NoError(t, err)
	assert.Equal(t, "abgeholt", archived.Data[models.FieldStatus])
	assert.Equal(t, "2024-07-01T08:00:00.000Z", archived.Data[models.FieldArchivedAt])
	assert.Equal(t, []string{"2024-06-20"}, f.cal.days)

	list, err := f.svc.ListArchived(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusPickedUp, list[0].Status)
	require.NotNil(t, list[0].ArchivedAt)
}

func TestArchive_FailedBatchLeavesOrderActive(t *testing.T) {
	f := newFixture(t, func(m *store.MemoryStore) store.Store { return failingBatchStore{m} })
	ctx := context.Background()
	seedOrder(t, f.memory, "o1", "ready", "2024-06-20")

	err := f.svc.Archive(ctx, "o1")
	assert.ErrorIs(t, err, models.ErrPartialArchive)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	active, err := f.memory.Get(ctx, models.CollectionOrders, "o1")
	require.NoError(t, err)
	assert.NotContains(t, active.Data, models.FieldArchivedAt)

	_, err = f.memory.Get(ctx, models.CollectionArchive, "o1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, f.cal.days)
}

func TestArchive_NotFound(t *testing.T) {
	f := newFixture(t, nil)
	err := f.svc.Archive(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSweepArchive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.clock.Set(time.Date(2024, 7, 20, 6, 0, 0, 0, berlin))

	seedOrder(t, f.memory, "old-picked", "picked-up", "2024-07-10")
	seedOrder(t, f.memory, "old-rejected", "Abgelehnt", "2024-07-05")
	seedOrder(t, f.memory, "recent-picked", "picked-up", "2024-07-15")
	seedOrder(t, f.memory, "old-open", "new", "2024-07-01")

	moved, err := f.svc.SweepArchive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	active, err := f.svc.ListActive(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(active))
	for _, o := range active {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []string{"recent-picked", "old-open"}, ids)

	moved, err = f.svc.SweepArchive(ctx)
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestSweepArchive_ReportsFailures(t *testing.T) {
	f := newFixture(t, func(m *store.MemoryStore) store.Store { return failingBatchStore{m} })
	f.clock.Set(time.Date(2024, 7, 20, 6, 0, 0, 0, berlin))
	seedOrder(t, f.memory, "a", "picked-up", "2024-07-01")
	seedOrder(t, f.memory, "b", "picked-up", "2024-07-02")

	moved, err := f.svc.SweepArchive(context.Background())
	assert.Zero(t, moved)
	assert.ErrorIs(t, err, models.ErrPartialArchive)
}
