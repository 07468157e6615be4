package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"lifedash/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the default record store. Timestamps are stored as
// RFC3339 UTC strings and days as "YYYY-MM-DD".
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunSQLiteMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Fixed-width so that ORDER BY on the text column is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type rowScanner interface {
	Scan(dest ...any) error
}

const habitColumns = `id, user_id, name, description, created_at, archived_at`

func scanSQLiteHabit(row rowScanner) (core.Habit, error) {
	var (
		h          core.Habit
		createdAt  string
		archivedAt sql.NullString
	)
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &createdAt, &archivedAt); err != nil {
		return core.Habit{}, err
	}
	var err error
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Habit{}, err
	}
	if h.ArchivedAt, err = parseNullTime(archivedAt); err != nil {
		return core.Habit{}, err
	}
	return h, nil
}

func (r *SQLiteRepository) ListActiveHabits(ctx context.Context, userID string) ([]core.Habit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+habitColumns+`
		FROM habits
		WHERE user_id = ? AND archived_at IS NULL
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var habits []core.Habit
	for rows.Next() {
		h, err := scanSQLiteHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate habits: %w", err)
	}
	return habits, nil
}

func (r *SQLiteRepository) GetHabit(ctx context.Context, userID, habitID string) (core.Habit, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ?`, habitID)
	h, err := scanSQLiteHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Habit{}, core.ErrHabitNotFound
	}
	if err != nil {
		return core.Habit{}, fmt.Errorf("get habit: %w", err)
	}
	if h.UserID != userID {
		return core.Habit{}, core.ErrNotOwnedByUser
	}
	return h, nil
}

func (r *SQLiteRepository) CreateHabit(ctx context.Context, h core.Habit) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO habits (id, user_id, name, description, created_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		h.ID, h.UserID, h.Name, h.Description, formatTime(h.CreatedAt), nullTime(h.ArchivedAt))
	if err != nil {
		return fmt.Errorf("create habit: %w", err)
	}
	slog.InfoContext(ctx, "Habit saved to SQLite", "id", h.ID, "user_id", h.UserID)
	return nil
}

func (r *SQLiteRepository) ArchiveHabit(ctx context.Context, userID, habitID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE habits SET archived_at = ?
		WHERE id = ? AND user_id = ? AND archived_at IS NULL`,
		formatTime(at), habitID, userID)
	if err != nil {
		return fmt.Errorf("archive habit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrHabitNotFound
	}
	return nil
}

const entryColumns = `id, habit_id, user_id, day, completed, notes, completed_at, created_at, updated_at`

func scanSQLiteEntry(row rowScanner) (core.HabitEntry, error) {
	var (
		e                    core.HabitEntry
		day                  string
		completed            int
		completedAt          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&e.ID, &e.HabitID, &e.UserID, &day, &completed, &e.Notes, &completedAt, &createdAt, &updatedAt); err != nil {
		return core.HabitEntry{}, err
	}
	var err error
	if e.Day, err = core.ParseDayKey(day); err != nil {
		return core.HabitEntry{}, err
	}
	e.Completed = completed == 1
	if e.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return core.HabitEntry{}, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.HabitEntry{}, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.HabitEntry{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) FindHabitEntries(ctx context.Context, userID string, habitID *string, from, to core.DayKey) ([]core.HabitEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM habit_entries WHERE user_id = ? AND day BETWEEN ? AND ?`
	args := []any{userID, from.String(), to.String()}
	if habitID != nil {
		query += ` AND habit_id = ?`
		args = append(args, *habitID)
	}
	query += ` ORDER BY day, habit_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find habit entries: %w", err)
	}
	defer rows.Close()

	var entries []core.HabitEntry
	for rows.Next() {
		e, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate habit entries: %w", err)
	}
	return entries, nil
}

// UpsertHabitEntry relies on UNIQUE(habit_id, day): concurrent writers for
// the same day serialize inside SQLite and the last one wins.
func (r *SQLiteRepository) UpsertHabitEntry(ctx context.Context, e core.HabitEntry) (core.HabitEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO habit_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(habit_id, day) DO UPDATE SET
			completed    = excluded.completed,
			notes        = excluded.notes,
			completed_at = excluded.completed_at,
			updated_at   = excluded.updated_at
		RETURNING `+entryColumns,
		e.ID, e.HabitID, e.UserID, e.Day.String(), boolToInt(e.Completed), e.Notes,
		nullTime(e.CompletedAt), formatTime(e.CreatedAt), formatTime(e.UpdatedAt))

	stored, err := scanSQLiteEntry(row)
	if err != nil {
		return core.HabitEntry{}, fmt.Errorf("upsert habit entry: %w", err)
	}
	slog.InfoContext(ctx, "Habit entry saved to SQLite",
		"id", stored.ID,
		"habit_id", stored.HabitID,
		"day", stored.Day.String(),
		"completed", stored.Completed)
	return stored, nil
}

const recurringColumns = `id, user_id, kind, name, amount, frequency, category, is_essential, is_active, created_at`

func scanSQLiteRecurring(row rowScanner) (core.RecurringAmount, error) {
	var (
		ra                    core.RecurringAmount
		kind, freq, amount    string
		isEssential, isActive int
		createdAt             string
	)
	if err := row.Scan(&ra.ID, &ra.UserID, &kind, &ra.Name, &amount, &freq, &ra.Category, &isEssential, &isActive, &createdAt); err != nil {
		return core.RecurringAmount{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.RecurringAmount{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	ra.Amount = d
	ra.Kind = core.RecurringKind(kind)
	ra.Frequency = core.Frequency(freq)
	ra.IsEssential = isEssential == 1
	ra.IsActive = isActive == 1
	if ra.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.RecurringAmount{}, err
	}
	return ra, nil
}

func (r *SQLiteRepository) listActiveRecurring(ctx context.Context, userID string, kind core.RecurringKind) ([]core.RecurringAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recurringColumns+`
		FROM recurring_amounts
		WHERE user_id = ? AND kind = ? AND is_active = 1
		ORDER BY created_at, id`, userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var out []core.RecurringAmount
	for rows.Next() {
		ra, err := scanSQLiteRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, ra)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListActiveIncomeSources(ctx context.Context, userID string) ([]core.RecurringAmount, error) {
	return r.listActiveRecurring(ctx, userID, core.KindIncome)
}

func (r *SQLiteRepository) ListActiveRecurringExpenses(ctx context.Context, userID string) ([]core.RecurringAmount, error) {
	return r.listActiveRecurring(ctx, userID, core.KindExpense)
}

func (r *SQLiteRepository) CreateRecurring(ctx context.Context, ra core.RecurringAmount) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_amounts (`+recurringColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ra.ID, ra.UserID, string(ra.Kind), ra.Name, ra.Amount.String(), string(ra.Frequency),
		ra.Category, boolToInt(ra.IsEssential), boolToInt(ra.IsActive), formatTime(ra.CreatedAt))
	if err != nil {
		return fmt.Errorf("create recurring amount: %w", err)
	}
	slog.InfoContext(ctx, "Recurring amount saved to SQLite",
		"id", ra.ID,
		"kind", ra.Kind,
		"frequency", ra.Frequency,
		"category", ra.Category)
	return nil
}

func (r *SQLiteRepository) DeactivateRecurring(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_amounts SET is_active = 0
		WHERE id = ? AND user_id = ? AND is_active = 1`, id, userID)
	if err != nil {
		return fmt.Errorf("deactivate recurring amount: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}
