// Package services orchestrates storage, the accounting engine, the AI
// client and change notifications for the HTTP layer.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"spendwise/internal/accounting"
	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/storage"
)

// EventPublisher announces record changes to the mirror worker.
type EventPublisher interface {
	PublishRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error
}

// RecordView is a record with its next charge date. NextChargeDate is nil
// for inactive records, records without a start date and records that end
// before the next charge.
type RecordView struct {
	Record         core.RecurringRecord
	NextChargeDate *core.Date
}

// RecordService manages subscriptions and income streams. Writes go to the
// store first; publishing the change is best effort.
type RecordService struct {
	store     storage.RecordStore
	publisher EventPublisher
	engine    *accounting.Engine
	logger    *log.StructuredLogger
}

func NewRecordService(store storage.RecordStore, publisher EventPublisher, engine *accounting.Engine, logger *log.Logger) *RecordService {
	if logger == nil {
		logger = log.NewDiscard()
	}
	return &RecordService{
		store:     store,
		publisher: publisher,
		engine:    engine,
		logger:    log.NewStructuredLogger(logger.WithComponent(log.ComponentRecords)),
	}
}

func (s *RecordService) Create(ctx context.Context, r core.RecurringRecord) (core.RecurringRecord, error) {
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.Name = strings.TrimSpace(r.Name)
	if err := r.Validate(); err != nil {
		return core.RecurringRecord{}, err
	}

	created, err := s.store.CreateRecord(ctx, r)
	if err != nil {
		return core.RecurringRecord{}, fmt.Errorf("save record: %w", err)
	}
	s.logger.LogRecordChanged(ctx, log.OpCreate, created.ID, string(created.Kind), created.Amount, created.Currency, string(created.Frequency))
	s.publish(ctx, created, amqp.OpUpsert)
	return created, nil
}

func (s *RecordService) Update(ctx context.Context, id string, patch core.RecordPatch) (core.RecurringRecord, error) {
	updated, err := s.store.UpdateRecord(ctx, id, patch)
	if err != nil {
		return core.RecurringRecord{}, err
	}
	s.logger.LogRecordChanged(ctx, log.OpUpdate, updated.ID, string(updated.Kind), updated.Amount, updated.Currency, string(updated.Frequency))
	s.publish(ctx, updated, amqp.OpUpsert)
	return updated, nil
}

func (s *RecordService) Delete(ctx context.Context, id string) error {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRecord(ctx, id); err != nil {
		return err
	}
	s.logger.LogRecordChanged(ctx, log.OpDelete, rec.ID, string(rec.Kind), rec.Amount, rec.Currency, string(rec.Frequency))
	s.publish(ctx, rec, amqp.OpDelete)
	return nil
}

func (s *RecordService) Get(ctx context.Context, id string) (RecordView, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return RecordView{}, err
	}
	return s.view(rec, s.engine.Today()), nil
}

// List returns all of a user's records of one kind, active or not.
func (s *RecordService) List(ctx context.Context, userID string, kind core.RecordKind) ([]RecordView, error) {
	records, err := s.store.ListByUser(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	today := s.engine.Today()
	out := make([]RecordView, len(records))
	for i, r := range records {
		out[i] = s.view(r, today)
	}
	return out, nil
}

func (s *RecordService) view(r core.RecurringRecord, today core.Date) RecordView {
	v := RecordView{Record: r}
	if !r.Active || r.StartDate == nil {
		return v
	}
	next := s.engine.NextChargeDate(*r.StartDate, r.Frequency, today)
	if r.EndDate != nil && !next.Before(*r.EndDate) {
		return v
	}
	v.NextChargeDate = &next
	return v
}

func (s *RecordService) publish(ctx context.Context, r core.RecurringRecord, op amqp.Op) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping record change message", "id", r.ID)
		return
	}
	if err := s.publisher.PublishRecordChanged(ctx, amqp.NewRecordChangedMessage(r, op)); err != nil {
		s.logger.LogError(ctx, "Failed to publish record change", err, log.OpMirror,
			log.NewFields().WithRecord(r.ID, string(r.Kind), r.Amount, r.Currency, string(r.Frequency)))
	}
}
