// Package worker exports created transactions to the configured
// spreadsheet, driven by transaction-created events from the broker.
package worker

import (
	"context"
	"errors"
	"fmt"

	"gastos/internal/amqp"
	"gastos/internal/export"
	"gastos/internal/log"
	"gastos/internal/storage"
)

// TransactionGetter loads the full row for an announced transaction.
type TransactionGetter interface {
	GetTransaction(ctx context.Context, id int64) (storage.TransactionRow, error)
}

// Consumer delivers transaction-created messages until ctx is cancelled.
type Consumer interface {
	ConsumeTransactionCreated(ctx context.Context, handler func(*amqp.TransactionCreatedMessage) error) error
}

type ExportWorker struct {
	store    TransactionGetter
	appender export.RowAppender
	logger   *log.Logger
}

func NewExportWorker(store TransactionGetter, appender export.RowAppender, logger *log.Logger) *ExportWorker {
	return &ExportWorker{
		store:    store,
		appender: appender,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes events until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer) error {
	return consumer.ConsumeTransactionCreated(ctx, func(msg *amqp.TransactionCreatedMessage) error {
		return w.Handle(ctx, msg)
	})
}

// Handle exports one announced transaction. A transaction deleted between
// insert and export is dropped rather than requeued forever.
func (w *ExportWorker) Handle(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	row, err := w.store.GetTransaction(ctx, msg.TransactionID)
	if errors.Is(err, storage.ErrNotFound) {
		w.logger.WarnContext(ctx, "Transaction vanished before export, dropping event",
			"transaccion_id", msg.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction %d: %w", msg.TransactionID, err)
	}

	exportRow := export.Row{
		Date:        row.Date.String(),
		Description: row.Description,
		Kind:        string(row.Kind),
		Category:    row.CategoryName,
		Amount:      row.Amount.Decimal(),
		Source:      msg.Source,
	}
	if err := w.appender.AppendRow(ctx, exportRow); err != nil {
		return fmt.Errorf("append transaction %d: %w", msg.TransactionID, err)
	}

	w.logger.InfoContext(ctx, "Exported transaction",
		"transaccion_id", msg.TransactionID,
		"descripcion", row.Description,
		"origen", msg.Source)
	return nil
}
