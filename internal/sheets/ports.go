package sheets

import (
	"context"
	"errors"
	"time"

	"lifedash/internal/core"
)

// EntryRow is one exported habit entry.
type EntryRow struct {
	// Ref identifies the logical write (entry ID and version). Exporters
	// record it so duplicates can be spotted in the sheet.
	Ref       string
	Day       core.DayKey
	HabitID   string
	HabitName string
	UserID    string
	Completed bool
	Notes     string
	LoggedAt  time.Time
}

var ErrInvalidRow = errors.New("invalid export row")

func (r EntryRow) Validate() error {
	if r.Ref == "" || r.HabitID == "" || r.UserID == "" {
		return ErrInvalidRow
	}
	if !r.Day.Valid() {
		return core.ErrInvalidDayKey
	}
	return nil
}

// Ports for outbound adapters.
type (
	EntryExporter interface {
		ExportEntry(ctx context.Context, row EntryRow) (rowRef string, err error)
	}
)
