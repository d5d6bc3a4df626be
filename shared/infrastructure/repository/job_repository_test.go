package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petsync/shared/batch"
	"petsync/shared/database"
	"petsync/shared/database/databasetest"
	"petsync/shared/observability"
)

func openBatchDB(t *testing.T) (*database.DB, *observability.DefaultProvider) {
	t.Helper()
	return databasetest.Open(t)
}

// counterReader yields 1..n and checkpoints how many it has read
type counterReader struct {
	n, pos int
	first  int
}

func (r *counterReader) Open(_ context.Context, ec batch.ExecutionContext) error {
	r.pos, r.first = 0, 0
	if pos, ok := ec.Int64("counter.pos"); ok {
		r.pos = int(pos)
	}
	return nil
}

func (r *counterReader) Update(ec batch.ExecutionContext) error {
	ec.PutInt64("counter.pos", int64(r.pos))
	return nil
}

func (r *counterReader) Close() error { return nil }

func (r *counterReader) Read(context.Context) (int, bool, error) {
	if r.pos >= r.n {
		return 0, false, nil
	}
	r.pos++
	if r.first == 0 {
		r.first = r.pos
	}
	return r.pos, true, nil
}

// itemWriter inserts into the item table and fails its nth call once
type itemWriter struct {
	db     *database.DB
	failAt int
	calls  int
}

func (w *itemWriter) Write(ctx context.Context, items []int) error {
	w.calls++
	for _, item := range items {
		if _, err := w.db.Executor(ctx).ExecContext(ctx, "INSERT INTO item (id) VALUES (?)", item); err != nil {
			return err
		}
	}
	if w.calls == w.failAt {
		return errors.New("injected fault")
	}
	return nil
}

func TestJobRepository_ChunksCommitWithCheckpoint(t *testing.T) {
	db, obs := openBatchDB(t)
	ctx := context.Background()
	_, err := db.Executor(ctx).ExecContext(ctx, "CREATE TABLE item (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	repo := NewJobRepository(db, obs.Logger("batch"), obs.Metrics("batch"))
	reader := &counterReader{n: 12}
	writer := &itemWriter{db: db, failAt: 3}
	step := batch.NewChunkStep[int, int]("load", reader, batch.PassThrough[int]{}, writer, batch.StepConfig{
		ChunkSize:  5,
		Repository: repo,
		Tx:         db,
		Logger:     obs.Logger("batch"),
		Metrics:    obs.Metrics("batch"),
	})
	job := batch.NewJob("loadJob", batch.RequiredParameters{"file": batch.TypeString}, step)
	launcher := batch.NewLauncher(repo, obs.Logger("batch"), obs.Metrics("batch"))
	params := batch.NewParametersBuilder().
		AddString("file", "/tmp/in/1-1700000000000.csv").
		AddDate("execution_time", time.UnixMilli(1700000000000)).
		Build()

	count := func() int {
		var n int
		require.NoError(t, sqlx.GetContext(ctx, db.Executor(ctx), &n, "SELECT COUNT(*) FROM item"))
		return n
	}

	first, err := launcher.Run(ctx, job, params)
	require.Error(t, err)
	assert.ErrorIs(t, err, batch.ErrChunkCommitFailed)
	assert.Equal(t, batch.StatusFailed, first.Status)
	assert.Equal(t, 10, count(), "the failed chunk is rolled back")

	stored, err := repo.LastStepExecution(ctx, first.Instance.ID, "load")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, batch.StatusFailed, stored.Status)
	assert.Equal(t, int64(2), stored.CommitCount)
	pos, _ := stored.Context.Int64("counter.pos")
	assert.Equal(t, int64(10), pos)

	second, err := launcher.Run(ctx, job, params)
	require.NoError(t, err)
	assert.Equal(t, batch.StatusCompleted, second.Status)
	assert.True(t, second.Restarted)
	assert.Equal(t, 11, reader.first, "restart resumes from item 11")
	assert.Equal(t, 12, count())

	last, err := repo.LastJobExecution(ctx, "loadJob", params)
	require.NoError(t, err)
	assert.Equal(t, second.ID, last.ID)
	assert.Equal(t, batch.StatusCompleted, last.Status)
	assert.True(t, last.Parameters.Equal(params))
	require.NotNil(t, last.EndTime)

	_, err = launcher.Run(ctx, job, params)
	assert.ErrorIs(t, err, batch.ErrAlreadyComplete)
}

func TestJobRepository_CreateJobExecution(t *testing.T) {
	db, obs := openBatchDB(t)
	ctx := context.Background()
	repo := NewJobRepository(db, obs.Logger("batch"), obs.Metrics("batch"))

	params := batch.NewParametersBuilder().AddLong("owner_id", 4).Build()

	running, err := repo.CreateJobExecution(ctx, "extractJob", params, true)
	require.NoError(t, err)
	assert.False(t, running.Restarted)

	_, err = repo.CreateJobExecution(ctx, "extractJob", params, true)
	assert.ErrorIs(t, err, batch.ErrAlreadyRunning)

	t.Run("other job name is another instance", func(t *testing.T) {
		other, err := repo.CreateJobExecution(ctx, "ingestJob", params, true)
		require.NoError(t, err)
		assert.NotEqual(t, running.Instance.ID, other.Instance.ID)
	})

	end := time.Now()
	running.Status = batch.StatusFailed
	running.EndTime = &end
	require.NoError(t, repo.UpdateJobExecution(ctx, running))

	_, err = repo.CreateJobExecution(ctx, "extractJob", params, false)
	assert.ErrorIs(t, err, batch.ErrRestartNotAllowed)

	restarted, err := repo.CreateJobExecution(ctx, "extractJob", params, true)
	require.NoError(t, err)
	assert.True(t, restarted.Restarted)
	assert.Equal(t, running.Instance.ID, restarted.Instance.ID)

	none, err := repo.LastStepExecution(ctx, restarted.Instance.ID, "extractStep")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	short := "step failed"
	assert.Equal(t, short, truncate(short))

	// 2499 ASCII bytes then a two-byte rune straddling the limit
	long := strings.Repeat("x", maxExitMessage-1) + "é" + strings.Repeat("y", 10)
	got := truncate(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxExitMessage-1, len(got))

	exact := strings.Repeat("ü", maxExitMessage/2+5)
	got = truncate(exact)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxExitMessage, len(got))
}
