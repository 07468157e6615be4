package worker

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifedash/internal/amqp"
	"lifedash/internal/cache"
	sheetsmem "lifedash/internal/sheets/memory"
)

func message(version int64) *amqp.HabitEntryLogged {
	return &amqp.HabitEntryLogged{
		ID:        "e1",
		HabitID:   "h1",
		UserID:    "u1",
		HabitName: "Read",
		Day:       "2025-03-09",
		Completed: true,
		LoggedAt:  time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC),
		Version:   version,
	}
}

func TestHandleEntryLogged_ExportsOnce(t *testing.T) {
	ctx := context.Background()
	exporter := sheetsmem.New()
	w := NewExportWorker(exporter, NewMemoryDeduper(100, time.Hour))

	require.NoError(t, w.HandleEntryLogged(ctx, message(1)))
	require.NoError(t, w.HandleEntryLogged(ctx, message(1)))
	// A later write of the same entry is a new version.
	require.NoError(t, w.HandleEntryLogged(ctx, message(2)))

	rows := exporter.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "e1:1", rows[0].Ref)
	assert.Equal(t, "2025-03-09", rows[0].Day.String())
	assert.Equal(t, "e1:2", rows[1].Ref)
}

func TestHandleEntryLogged_FailureReleasesKey(t *testing.T) {
	ctx := context.Background()
	exporter := sheetsmem.New()
	w := NewExportWorker(exporter, NewMemoryDeduper(100, time.Hour))

	exporter.FailNext(1)
	err := w.HandleEntryLogged(ctx, message(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "e1:1")

	// The redelivery must not be treated as a duplicate.
	require.NoError(t, w.HandleEntryLogged(ctx, message(1)))
	assert.Len(t, exporter.Rows(), 1)
}

func TestHandleEntryLogged_DropsInvalidRow(t *testing.T) {
	exporter := sheetsmem.New()
	w := NewExportWorker(exporter, nil)

	msg := message(1)
	msg.UserID = ""
	require.NoError(t, w.HandleEntryLogged(context.Background(), msg))
	assert.Empty(t, exporter.Rows())
}

func TestHandleEntryLogged_NoDeduper(t *testing.T) {
	exporter := sheetsmem.New()
	w := NewExportWorker(exporter, nil)

	require.NoError(t, w.HandleEntryLogged(context.Background(), message(1)))
	require.NoError(t, w.HandleEntryLogged(context.Background(), message(1)))
	assert.Len(t, exporter.Rows(), 2)
}

func TestRedisDeduper_FailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	d := NewRedisDeduper(rdb, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.True(t, d.AcquireOnce(ctx, "k"))
	assert.True(t, d.AcquireOnce(ctx, "k"), "an unreachable redis must never block exports")
	d.Release(ctx, "k")
}

func TestNewRedisClient(t *testing.T) {
	rdb, err := NewRedisClient("redis://:secret@localhost:6380/2")
	require.NoError(t, err)
	defer rdb.Close()
	assert.Equal(t, "localhost:6380", rdb.Options().Addr)
	assert.Equal(t, 2, rdb.Options().DB)

	_, err = NewRedisClient("http://nope")
	assert.Error(t, err)
}

func TestMemoryDeduper_ExpiresWithManager(t *testing.T) {
	d := NewMemoryDeduper(10, 20*time.Millisecond)
	m := cache.NewManager()
	m.Register(d.Cache())

	ctx := context.Background()
	require.True(t, d.AcquireOnce(ctx, "a"))
	require.False(t, d.AcquireOnce(ctx, "a"))

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, m.CleanNow())
	assert.True(t, d.AcquireOnce(ctx, "a"))
}

type fakeConsumer struct {
	msgs []*amqp.HabitEntryLogged
	errs []error
}

func (f *fakeConsumer) Consume(ctx context.Context, handler amqp.Handler) error {
	for _, m := range f.msgs {
		f.errs = append(f.errs, handler(ctx, m))
	}
	return context.Canceled
}

func TestRun(t *testing.T) {
	exporter := sheetsmem.New()
	w := NewExportWorker(exporter, NewMemoryDeduper(10, time.Hour))
	c := &fakeConsumer{msgs: []*amqp.HabitEntryLogged{message(1), message(1), message(3)}}

	err := w.Run(context.Background(), c)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []error{nil, nil, nil}, c.errs)
	assert.Len(t, exporter.Rows(), 2)
}
