package services

import (
	"context"
	"fmt"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/storage"
)

// TransactionStore is the slice of the storage layer the transaction
// service needs.
type TransactionStore interface {
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]storage.TransactionRow, error)
	GetTransaction(ctx context.Context, id int64) (storage.TransactionRow, error)
	InsertTransaction(ctx context.Context, t core.Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, id int64, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
}

// TransactionService validates and persists user-entered transactions and
// announces inserts to the export pipeline.
type TransactionService struct {
	store     TransactionStore
	publisher EventPublisher
	logger    *log.Logger
}

func NewTransactionService(store TransactionStore, publisher EventPublisher, logger *log.Logger) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentAPI),
	}
}

func (s *TransactionService) List(ctx context.Context, f storage.TransactionFilter) ([]storage.TransactionRow, error) {
	return s.store.ListTransactions(ctx, f)
}

func (s *TransactionService) Get(ctx context.Context, id int64) (storage.TransactionRow, error) {
	return s.store.GetTransaction(ctx, id)
}

// Create inserts a transaction and publishes a created event. Publishing is
// best effort: the insert has already committed, so a broker outage only
// delays the spreadsheet export.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (storage.TransactionRow, error) {
	if err := t.Validate(); err != nil {
		return storage.TransactionRow{}, err
	}

	id, err := s.store.InsertTransaction(ctx, t)
	if err != nil {
		return storage.TransactionRow{}, fmt.Errorf("insert transaction: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionCreated(ctx, id, amqp.SourceManual); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish transaction created event",
				"transaccion_id", id,
				"error", err)
		}
	}

	return s.store.GetTransaction(ctx, id)
}

func (s *TransactionService) Update(ctx context.Context, id int64, t core.Transaction) (storage.TransactionRow, error) {
	if err := t.Validate(); err != nil {
		return storage.TransactionRow{}, err
	}
	if err := s.store.UpdateTransaction(ctx, id, t); err != nil {
		return storage.TransactionRow{}, err
	}
	return s.store.GetTransaction(ctx, id)
}

func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteTransaction(ctx, id)
}
