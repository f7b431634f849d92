package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/export"
	"gastos/internal/log"
	"gastos/internal/storage"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

type fakeGetter struct {
	rows map[int64]storage.TransactionRow
	err  error
}

func (f *fakeGetter) GetTransaction(ctx context.Context, id int64) (storage.TransactionRow, error) {
	if f.err != nil {
		return storage.TransactionRow{}, f.err
	}
	row, ok := f.rows[id]
	if !ok {
		return storage.TransactionRow{}, storage.ErrNotFound
	}
	return row, nil
}

type fakeAppender struct {
	rows []export.Row
	err  error
}

func (f *fakeAppender) AppendRow(ctx context.Context, row export.Row) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func sampleRow(id int64) storage.TransactionRow {
	return storage.TransactionRow{
		Transaction: core.Transaction{
			ID:          id,
			Description: "Alquiler (Automático)",
			Amount:      core.Money{Cents: 50000},
			Kind:        core.Expense,
			CategoryID:  9,
			Date:        core.NewDate(2024, 5, 5),
		},
		CategoryName:  "Servicios",
		CategoryColor: "#34495e",
	}
}

func TestHandleExportsRow(t *testing.T) {
	getter := &fakeGetter{rows: map[int64]storage.TransactionRow{42: sampleRow(42)}}
	appender := &fakeAppender{}
	w := NewExportWorker(getter, appender, quietLogger())

	msg := &amqp.TransactionCreatedMessage{TransactionID: 42, Source: amqp.SourceRecurring}
	if err := w.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(appender.rows) != 1 {
		t.Fatalf("appended rows = %d, want 1", len(appender.rows))
	}
	got := appender.rows[0]
	want := export.Row{
		Date:        "2024-05-05",
		Description: "Alquiler (Automático)",
		Kind:        "egreso",
		Category:    "Servicios",
		Amount:      "500.00",
		Source:      "recurrente",
	}
	if got != want {
		t.Errorf("exported row = %+v, want %+v", got, want)
	}
}

func TestHandleDropsVanishedTransaction(t *testing.T) {
	w := NewExportWorker(&fakeGetter{rows: map[int64]storage.TransactionRow{}}, &fakeAppender{}, quietLogger())

	msg := &amqp.TransactionCreatedMessage{TransactionID: 7, Source: amqp.SourceManual}
	if err := w.Handle(context.Background(), msg); err != nil {
		t.Errorf("Handle should drop missing transactions, got %v", err)
	}
}

func TestHandlePropagatesErrors(t *testing.T) {
	t.Run("store failure", func(t *testing.T) {
		getter := &fakeGetter{err: errors.New("database is locked")}
		w := NewExportWorker(getter, &fakeAppender{}, quietLogger())

		msg := &amqp.TransactionCreatedMessage{TransactionID: 7, Source: amqp.SourceManual}
		if err := w.Handle(context.Background(), msg); err == nil {
			t.Error("Handle should propagate store errors for requeue")
		}
	})

	t.Run("appender failure", func(t *testing.T) {
		getter := &fakeGetter{rows: map[int64]storage.TransactionRow{7: sampleRow(7)}}
		appender := &fakeAppender{err: errors.New("quota exceeded")}
		w := NewExportWorker(getter, appender, quietLogger())

		msg := &amqp.TransactionCreatedMessage{TransactionID: 7, Source: amqp.SourceManual}
		if err := w.Handle(context.Background(), msg); err == nil {
			t.Error("Handle should propagate appender errors for requeue")
		}
	})
}
