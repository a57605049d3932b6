// Package worker keeps the spreadsheet mirror in step with storage.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/sheets"
	"spendwise/internal/storage"
)

type Config struct {
	// ReconcileInterval is how often the mirror is compared against storage
	// to repair lost messages (default: 15m).
	ReconcileInterval time.Duration
}

func DefaultConfig() Config {
	return Config{ReconcileInterval: 15 * time.Minute}
}

// MirrorWorker applies record change messages to the mirror and runs a
// periodic reconciliation pass.
type MirrorWorker struct {
	store  storage.RecordStore
	mirror sheets.Mirror
	config Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewMirrorWorker(store storage.RecordStore, mirror sheets.Mirror, config Config) *MirrorWorker {
	if config.ReconcileInterval <= 0 {
		config.ReconcileInterval = DefaultConfig().ReconcileInterval
	}
	return &MirrorWorker{store: store, mirror: mirror, config: config}
}

// HandleRecordChanged reloads the record and mirrors its current state. A
// record that no longer exists is removed from the mirror whatever the
// message op says.
func (w *MirrorWorker) HandleRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	slog.InfoContext(ctx, "Processing record change", "id", msg.ID, "op", msg.Op, "version", msg.Version)

	if msg.Op == amqp.OpDelete {
		return w.remove(ctx, msg.Kind, msg.ID)
	}

	rec, err := w.store.GetRecord(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return w.remove(ctx, msg.Kind, msg.ID)
	}
	if err != nil {
		return fmt.Errorf("get record %s: %w", msg.ID, err)
	}
	if rec.Version < msg.Version {
		// Storage has not caught up with the message yet; retry later.
		return fmt.Errorf("record %s at version %d, message at %d", rec.ID, rec.Version, msg.Version)
	}

	if err := w.mirror.UpsertRecord(ctx, rec); err != nil {
		return fmt.Errorf("mirror record %s: %w", rec.ID, err)
	}
	return nil
}

func (w *MirrorWorker) remove(ctx context.Context, kind core.RecordKind, id string) error {
	if err := w.mirror.DeleteRecord(ctx, kind, id); err != nil {
		return fmt.Errorf("remove mirrored record %s: %w", id, err)
	}
	return nil
}

// Reconcile compares every mirrored tab with storage. Rows whose record is
// gone are removed, stale rows are rewritten, and records of users already
// present in the mirror that are missing from it are added.
func (w *MirrorWorker) Reconcile(ctx context.Context) error {
	var errs []error
	for _, kind := range []core.RecordKind{core.KindSubscription, core.KindIncome} {
		if err := w.reconcileKind(ctx, kind); err != nil {
			errs = append(errs, fmt.Errorf("reconcile %s: %w", kind, err))
		}
	}
	return errors.Join(errs...)
}

func (w *MirrorWorker) reconcileKind(ctx context.Context, kind core.RecordKind) error {
	rows, err := w.mirror.ListMirrored(ctx, kind)
	if err != nil {
		return err
	}

	mirrored := make(map[string]sheets.MirroredRow, len(rows))
	users := map[string]struct{}{}
	for _, row := range rows {
		mirrored[row.ID] = row
		users[row.UserID] = struct{}{}
	}

	repaired := 0
	for userID := range users {
		records, err := w.store.ListByUser(ctx, userID, kind)
		if err != nil {
			return fmt.Errorf("list records for %s: %w", userID, err)
		}
		for _, rec := range records {
			row, ok := mirrored[rec.ID]
			delete(mirrored, rec.ID)
			if ok && row.Version >= rec.Version {
				continue
			}
			if err := w.mirror.UpsertRecord(ctx, rec); err != nil {
				return err
			}
			repaired++
		}
	}

	// Whatever is left has no record behind it.
	for id := range mirrored {
		if err := w.mirror.DeleteRecord(ctx, kind, id); err != nil {
			return err
		}
		repaired++
	}

	if repaired > 0 {
		slog.InfoContext(ctx, "Mirror reconciled", "kind", kind, "repaired", repaired)
	}
	return nil
}

// Start runs Reconcile immediately and then every ReconcileInterval.
func (w *MirrorWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("mirror worker is already running")
	}
	w.running = true
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	w.stopCh = stopCh
	w.doneCh = doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Mirror worker started", "reconcile_interval", w.config.ReconcileInterval)
	return nil
}

// Stop signals the loop and waits for it, or for ctx.
func (w *MirrorWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	close(w.stopCh)
	done := w.doneCh
	w.running = false
	w.mu.Unlock()

	select {
	case <-done:
		slog.InfoContext(ctx, "Mirror worker stopped")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror worker stop timed out")
		return ctx.Err()
	}
}

func (w *MirrorWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// runLoop owns the channels of one Start; a later Start replaces the
// worker's fields without touching them.
func (w *MirrorWorker) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.ReconcileInterval)
	defer ticker.Stop()

	w.reconcileOnce(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reconcileOnce(ctx)
		}
	}
}

func (w *MirrorWorker) reconcileOnce(ctx context.Context) {
	if err := w.Reconcile(ctx); err != nil {
		slog.ErrorContext(ctx, "Mirror reconciliation failed", "error", err)
	}
}
