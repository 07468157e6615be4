package worker

import (
	"context"
	"fmt"
	"log/slog"

	"lifedash/internal/amqp"
	"lifedash/internal/core"
	"lifedash/internal/metrics"
	"lifedash/internal/sheets"
)

// Export outcomes recorded in metrics.
const (
	StatusExported  = "exported"
	StatusDuplicate = "duplicate"
	StatusFailed    = "failed"
)

// Consumer delivers messages to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// ExportWorker copies logged habit entries to the spreadsheet.
type ExportWorker struct {
	exporter sheets.EntryExporter
	dedup    Deduper
}

// NewExportWorker wires the worker. dedup may be nil, in which case every
// delivery is exported.
func NewExportWorker(exporter sheets.EntryExporter, dedup Deduper) *ExportWorker {
	return &ExportWorker{exporter: exporter, dedup: dedup}
}

// Run consumes until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer) error {
	return consumer.Consume(ctx, w.HandleEntryLogged)
}

// HandleEntryLogged exports one message. Duplicates are acknowledged without
// a second export; a failed export releases the dedup key and returns an
// error so the delivery is requeued.
func (w *ExportWorker) HandleEntryLogged(ctx context.Context, msg *amqp.HabitEntryLogged) error {
	key := msg.DedupKey()
	if w.dedup != nil && !w.dedup.AcquireOnce(ctx, key) {
		slog.InfoContext(ctx, "Skipped duplicate habit entry message", "key", key)
		metrics.RecordExport(StatusDuplicate)
		return nil
	}

	row, err := toRow(msg)
	if err != nil {
		// Undecodable rows are dropped; requeueing would loop forever.
		slog.ErrorContext(ctx, "Dropping unexportable message", "key", key, "error", err)
		metrics.RecordExport(StatusFailed)
		return nil
	}

	ref, err := w.exporter.ExportEntry(ctx, row)
	if err != nil {
		if w.dedup != nil {
			w.dedup.Release(ctx, key)
		}
		metrics.RecordExport(StatusFailed)
		return fmt.Errorf("export entry %s: %w", key, err)
	}

	metrics.RecordExport(StatusExported)
	slog.InfoContext(ctx, "Exported habit entry",
		"key", key,
		"habit_id", msg.HabitID,
		"day", msg.Day,
		"sheets_ref", ref)
	return nil
}

func toRow(msg *amqp.HabitEntryLogged) (sheets.EntryRow, error) {
	day, err := core.ParseDayKey(msg.Day)
	if err != nil {
		return sheets.EntryRow{}, err
	}
	row := sheets.EntryRow{
		Ref:       msg.DedupKey(),
		Day:       day,
		HabitID:   msg.HabitID,
		HabitName: msg.HabitName,
		UserID:    msg.UserID,
		Completed: msg.Completed,
		Notes:     msg.Notes,
		LoggedAt:  msg.LoggedAt,
	}
	return row, row.Validate()
}
