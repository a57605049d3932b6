package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/sheets/memory"
	"spendwise/internal/storage"
)

func newRecord(user, name string) core.RecurringRecord {
	return core.RecurringRecord{
		UserID: user, Kind: core.KindSubscription, Name: name,
		Amount: 5, Currency: "EUR", Frequency: core.Monthly, Active: true,
	}
}

func TestMirrorWorker_HandleRecordChanged(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mirror := memory.New()
	w := NewMirrorWorker(store, mirror, Config{})

	rec, err := store.CreateRecord(ctx, newRecord("u1", "Music"))
	require.NoError(t, err)

	require.NoError(t, w.HandleRecordChanged(ctx, amqp.NewRecordChangedMessage(rec, amqp.OpUpsert)))
	rows, _ := mirror.ListMirrored(ctx, core.KindSubscription)
	require.Len(t, rows, 1)
	assert.Equal(t, "Music", rows[0].Name)

	name := "Music Family"
	updated, err := store.UpdateRecord(ctx, rec.ID, core.RecordPatch{Name: &name})
	require.NoError(t, err)
	require.NoError(t, w.HandleRecordChanged(ctx, amqp.NewRecordChangedMessage(updated, amqp.OpUpsert)))
	rows, _ = mirror.ListMirrored(ctx, core.KindSubscription)
	assert.Equal(t, "Music Family", rows[0].Name)

	require.NoError(t, store.DeleteRecord(ctx, rec.ID))
	require.NoError(t, w.HandleRecordChanged(ctx, amqp.NewRecordChangedMessage(updated, amqp.OpDelete)))
	rows, _ = mirror.ListMirrored(ctx, core.KindSubscription)
	assert.Empty(t, rows)
}

func TestMirrorWorker_UpsertForMissingRecordRemovesRow(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mirror := memory.New()
	w := NewMirrorWorker(store, mirror, Config{})

	ghost := newRecord("u1", "Ghost")
	ghost.ID = "ghost"
	ghost.Version = 1
	require.NoError(t, mirror.UpsertRecord(ctx, ghost))

	require.NoError(t, w.HandleRecordChanged(ctx, amqp.NewRecordChangedMessage(ghost, amqp.OpUpsert)))
	rows, _ := mirror.ListMirrored(ctx, core.KindSubscription)
	assert.Empty(t, rows)
}

func TestMirrorWorker_MessageAheadOfStorageIsRetried(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	w := NewMirrorWorker(store, memory.New(), Config{})

	rec, err := store.CreateRecord(ctx, newRecord("u1", "Gym"))
	require.NoError(t, err)

	msg := amqp.NewRecordChangedMessage(rec, amqp.OpUpsert)
	msg.Version = 5
	assert.Error(t, w.HandleRecordChanged(ctx, msg))
}

func TestMirrorWorker_Reconcile(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mirror := memory.New()
	w := NewMirrorWorker(store, mirror, Config{})

	kept, err := store.CreateRecord(ctx, newRecord("u1", "Kept"))
	require.NoError(t, err)
	require.NoError(t, mirror.UpsertRecord(ctx, kept))

	missing, err := store.CreateRecord(ctx, newRecord("u1", "Never mirrored"))
	require.NoError(t, err)

	name := "Renamed"
	stale, err := store.CreateRecord(ctx, newRecord("u1", "Stale"))
	require.NoError(t, err)
	require.NoError(t, mirror.UpsertRecord(ctx, stale))
	_, err = store.UpdateRecord(ctx, stale.ID, core.RecordPatch{Name: &name})
	require.NoError(t, err)

	orphan := newRecord("u1", "Orphan")
	orphan.ID = "orphan"
	orphan.Version = 1
	require.NoError(t, mirror.UpsertRecord(ctx, orphan))

	require.NoError(t, w.Reconcile(ctx))

	rows, err := mirror.ListMirrored(ctx, core.KindSubscription)
	require.NoError(t, err)
	byID := map[string]string{}
	for _, r := range rows {
		byID[r.ID] = r.Name
	}
	assert.Equal(t, map[string]string{
		kept.ID:    "Kept",
		missing.ID: "Never mirrored",
		stale.ID:   "Renamed",
	}, byID)
}

func TestMirrorWorker_StartStop(t *testing.T) {
	w := NewMirrorWorker(storage.NewMemoryStore(), memory.New(), Config{ReconcileInterval: 10 * time.Millisecond})
	ctx := context.Background()

	assert.False(t, w.IsRunning())
	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start(ctx))

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop(stopCtx))
}

func TestMirrorWorker_RestartAfterStopTimeout(t *testing.T) {
	w := NewMirrorWorker(storage.NewMemoryStore(), memory.New(), Config{ReconcileInterval: time.Millisecond})
	ctx := context.Background()

	for range 3 {
		require.NoError(t, w.Start(ctx))

		expired, cancel := context.WithCancel(ctx)
		cancel()
		// The loop may still be running when an expired context gives up.
		_ = w.Stop(expired)
		assert.False(t, w.IsRunning())
	}

	require.NoError(t, w.Start(ctx))
	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))
	assert.False(t, w.IsRunning())
}
