// Package memory is an in-process exporter used when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	ports "lifedash/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []ports.EntryRow
	// failNext makes the next n exports fail; see FailNext.
	failNext int
}

var _ ports.EntryExporter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// ExportEntry stores the row and returns a synthetic row reference.
func (s *Store) ExportEntry(_ context.Context, row ports.EntryRow) (string, error) {
	if err := row.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return "", fmt.Errorf("export %s: simulated failure", row.Ref)
	}
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything exported so far.
func (s *Store) Rows() []ports.EntryRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.EntryRow(nil), s.rows...)
}

// FailNext makes the next n exports return an error.
func (s *Store) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}
