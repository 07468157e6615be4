package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"lifedash/internal/core"
)

// PostgresRepository implements Store on a pgx connection pool. Days are
// DATE columns read back through to_char so no zone conversion happens.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresRepository)(nil)

// PostgresConfig tunes the connection pool.
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	if err := RunPostgresMigrations(cfg.URL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	slog.InfoContext(ctx, "PostgreSQL connection established",
		"host", poolCfg.ConnConfig.Host,
		"database", poolCfg.ConnConfig.Database,
		"max_conns", poolCfg.MaxConns)

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const pgHabitColumns = `id, user_id, name, description, created_at, archived_at`

func scanPgHabit(row pgx.Row) (core.Habit, error) {
	var h core.Habit
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &h.CreatedAt, &h.ArchivedAt); err != nil {
		return core.Habit{}, err
	}
	h.CreatedAt = h.CreatedAt.UTC()
	if h.ArchivedAt != nil {
		at := h.ArchivedAt.UTC()
		h.ArchivedAt = &at
	}
	return h, nil
}

func (r *PostgresRepository) ListActiveHabits(ctx context.Context, userID string) ([]core.Habit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+pgHabitColumns+`
		FROM habits
		WHERE user_id = $1 AND archived_at IS NULL
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var habits []core.Habit
	for rows.Next() {
		h, err := scanPgHabit(rows)
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

func (r *PostgresRepository) GetHabit(ctx context.Context, userID, habitID string) (core.Habit, error) {
	h, err := scanPgHabit(r.pool.QueryRow(ctx, `SELECT `+pgHabitColumns+` FROM habits WHERE id = $1`, habitID))
	if errors.Is(err, pgx.ErrNoRows) {
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

func (r *PostgresRepository) CreateHabit(ctx context.Context, h core.Habit) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO habits (id, user_id, name, description, created_at, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		h.ID, h.UserID, h.Name, h.Description, h.CreatedAt.UTC(), h.ArchivedAt)
	if err != nil {
		return fmt.Errorf("create habit: %w", err)
	}
	slog.InfoContext(ctx, "Habit saved to PostgreSQL", "id", h.ID, "user_id", h.UserID)
	return nil
}

func (r *PostgresRepository) ArchiveHabit(ctx context.Context, userID, habitID string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE habits SET archived_at = $1
		WHERE id = $2 AND user_id = $3 AND archived_at IS NULL`,
		at.UTC(), habitID, userID)
	if err != nil {
		return fmt.Errorf("archive habit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrHabitNotFound
	}
	return nil
}

const pgEntryColumns = `id, habit_id, user_id, to_char(day, 'YYYY-MM-DD'), completed, notes, completed_at, created_at, updated_at`

func scanPgEntry(row pgx.Row) (core.HabitEntry, error) {
	var (
		e   core.HabitEntry
		day string
	)
	if err := row.Scan(&e.ID, &e.HabitID, &e.UserID, &day, &e.Completed, &e.Notes, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return core.HabitEntry{}, err
	}
	dk, err := core.ParseDayKey(day)
	if err != nil {
		return core.HabitEntry{}, err
	}
	e.Day = dk
	if e.CompletedAt != nil {
		at := e.CompletedAt.UTC()
		e.CompletedAt = &at
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

func (r *PostgresRepository) FindHabitEntries(ctx context.Context, userID string, habitID *string, from, to core.DayKey) ([]core.HabitEntry, error) {
	query := `SELECT ` + pgEntryColumns + ` FROM habit_entries WHERE user_id = $1 AND day BETWEEN $2::date AND $3::date`
	args := []any{userID, from.String(), to.String()}
	if habitID != nil {
		query += ` AND habit_id = $4`
		args = append(args, *habitID)
	}
	query += ` ORDER BY day, habit_id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find habit entries: %w", err)
	}
	defer rows.Close()

	var entries []core.HabitEntry
	for rows.Next() {
		e, err := scanPgEntry(rows)
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

func (r *PostgresRepository) UpsertHabitEntry(ctx context.Context, e core.HabitEntry) (core.HabitEntry, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO habit_entries (id, habit_id, user_id, day, completed, notes, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9)
		ON CONFLICT (habit_id, day) DO UPDATE SET
			completed    = EXCLUDED.completed,
			notes        = EXCLUDED.notes,
			completed_at = EXCLUDED.completed_at,
			updated_at   = EXCLUDED.updated_at
		RETURNING `+pgEntryColumns,
		e.ID, e.HabitID, e.UserID, e.Day.String(), e.Completed, e.Notes,
		e.CompletedAt, e.CreatedAt.UTC(), e.UpdatedAt.UTC())

	stored, err := scanPgEntry(row)
	if err != nil {
		return core.HabitEntry{}, fmt.Errorf("upsert habit entry: %w", err)
	}
	slog.InfoContext(ctx, "Habit entry saved to PostgreSQL",
		"id", stored.ID,
		"habit_id", stored.HabitID,
		"day", stored.Day.String(),
		"completed", stored.Completed)
	return stored, nil
}

const pgRecurringColumns = `id, user_id, kind, name, amount::text, frequency, category, is_essential, is_active, created_at`

func scanPgRecurring(row pgx.Row) (core.RecurringAmount, error) {
	var (
		ra                 core.RecurringAmount
		kind, freq, amount string
	)
	if err := row.Scan(&ra.ID, &ra.UserID, &kind, &ra.Name, &amount, &freq, &ra.Category, &ra.IsEssential, &ra.IsActive, &ra.CreatedAt); err != nil {
		return core.RecurringAmount{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.RecurringAmount{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	ra.Amount = d
	ra.Kind = core.RecurringKind(kind)
	ra.Frequency = core.Frequency(freq)
	ra.CreatedAt = ra.CreatedAt.UTC()
	return ra, nil
}

func (r *PostgresRepository) listActiveRecurring(ctx context.Context, userID string, kind core.RecurringKind) ([]core.RecurringAmount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+pgRecurringColumns+`
		FROM recurring_amounts
		WHERE user_id = $1 AND kind = $2 AND is_active
		ORDER BY created_at, id`, userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var out []core.RecurringAmount
	for rows.Next() {
		ra, err := scanPgRecurring(rows)
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

func (r *PostgresRepository) ListActiveIncomeSources(ctx context.Context, userID string) ([]core.RecurringAmount, error) {
	return r.listActiveRecurring(ctx, userID, core.KindIncome)
}

func (r *PostgresRepository) ListActiveRecurringExpenses(ctx context.Context, userID string) ([]core.RecurringAmount, error) {
	return r.listActiveRecurring(ctx, userID, core.KindExpense)
}

func (r *PostgresRepository) CreateRecurring(ctx context.Context, ra core.RecurringAmount) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO recurring_amounts (id, user_id, kind, name, amount, frequency, category, is_essential, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)`,
		ra.ID, ra.UserID, string(ra.Kind), ra.Name, ra.Amount.String(), string(ra.Frequency),
		ra.Category, ra.IsEssential, ra.IsActive, ra.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create recurring amount: %w", err)
	}
	slog.InfoContext(ctx, "Recurring amount saved to PostgreSQL",
		"id", ra.ID,
		"kind", ra.Kind,
		"frequency", ra.Frequency,
		"category", ra.Category)
	return nil
}

func (r *PostgresRepository) DeactivateRecurring(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE recurring_amounts SET is_active = FALSE
		WHERE id = $1 AND user_id = $2 AND is_active`, id, userID)
	if err != nil {
		return fmt.Errorf("deactivate recurring amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}
