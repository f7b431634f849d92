package services

import (
	"context"
	"fmt"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/log"
)

// RecurringStore is the slice of the storage layer the processor needs.
type RecurringStore interface {
	ListActiveRecurringTemplates(ctx context.Context) ([]core.RecurringTemplate, error)
	MaterializeTransaction(ctx context.Context, templateID int64, t core.Transaction) (int64, bool, error)
}

// EventPublisher emits transaction-created events for downstream consumers.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, transactionID int64, source string) error
}

// SummaryInvalidator drops cached aggregates. Materialized transactions
// change the summary totals without passing through an HTTP write handler,
// so the processor has to poke the cache itself.
type SummaryInvalidator interface {
	InvalidateSummaries()
}

// RecurringProcessor turns due recurring templates into concrete
// transactions. Materialization happens through a conditional claim in the
// storage layer, so overlapping passes (scheduler tick plus a manual
// trigger, or two processes sharing the database) produce exactly one
// transaction per template per month.
type RecurringProcessor struct {
	store       RecurringStore
	publisher   EventPublisher
	invalidator SummaryInvalidator
	logger      *log.Logger
	now         func() time.Time
}

// NewRecurringProcessor wires a processor. The publisher may be nil when no
// broker is configured.
func NewRecurringProcessor(store RecurringStore, publisher EventPublisher, logger *log.Logger) *RecurringProcessor {
	return &RecurringProcessor{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentProcessor),
		now:       time.Now,
	}
}

// SetSummaryInvalidator attaches the cache to poke after a pass. The server
// is built after the processor, hence a setter instead of a constructor
// argument.
func (p *RecurringProcessor) SetSummaryInvalidator(inv SummaryInvalidator) {
	p.invalidator = inv
}

// ProcessDue runs one full pass over the active templates and returns how
// many transactions it materialized. A failing template does not stop the
// pass; per-template errors are aggregated into the returned error after
// the remaining templates have been attempted.
func (p *RecurringProcessor) ProcessDue(ctx context.Context) (int, error) {
	now := p.now()
	templates, err := p.store.ListActiveRecurringTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active recurring templates: %w", err)
	}

	p.logger.InfoContext(ctx, "Starting recurring pass",
		"date", core.DateOf(now).String(),
		"active_templates", len(templates))

	var processed, failed int
	for _, tpl := range templates {
		if !IsDue(tpl, now) {
			continue
		}

		txID, claimed, err := p.store.MaterializeTransaction(ctx, tpl.ID, materializedTransaction(tpl, now))
		if err != nil {
			failed++
			p.logger.ErrorContext(ctx, "Failed to materialize recurring transaction",
				"template_id", tpl.ID,
				"descripcion", tpl.Description,
				"error", err)
			continue
		}
		if !claimed {
			// Another pass won the claim for this month.
			p.logger.DebugContext(ctx, "Template already processed this month",
				"template_id", tpl.ID,
				"descripcion", tpl.Description)
			continue
		}

		processed++
		p.logger.InfoContext(ctx, "Materialized recurring transaction",
			"template_id", tpl.ID,
			"transaccion_id", txID,
			"descripcion", tpl.Description,
			"monto", tpl.Amount.Decimal())

		if p.publisher != nil {
			if err := p.publisher.PublishTransactionCreated(ctx, txID, amqp.SourceRecurring); err != nil {
				// The transaction is committed; only the export lags.
				p.logger.WarnContext(ctx, "Failed to publish transaction created event",
					"transaccion_id", txID,
					"error", err)
			}
		}
	}

	if processed > 0 && p.invalidator != nil {
		p.invalidator.InvalidateSummaries()
	}

	p.logger.InfoContext(ctx, "Recurring pass finished",
		"processed", processed,
		"failed", failed)

	if failed > 0 {
		return processed, fmt.Errorf("recurring pass: %d of %d due templates failed", failed, processed+failed)
	}
	return processed, nil
}

// materializedTransaction derives the concrete transaction for a template.
// The suffix marks provenance; there is no dedicated column for it.
func materializedTransaction(tpl core.RecurringTemplate, now time.Time) core.Transaction {
	return core.Transaction{
		Description: tpl.Description + core.AutomaticSuffix,
		Amount:      tpl.Amount,
		Kind:        tpl.Kind,
		CategoryID:  tpl.CategoryID,
		Date:        core.DateOf(now),
	}
}
