package data

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/periwatch/brief-api/internal/domain/model"
)

func newTestRegistry(t *testing.T) (*JobRegistry, *FixedTimeProvider) {
	t.Helper()
	clock := NewFixedTimeProvider(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewJobRegistry(JobRegistryOptions{TimeProvider: clock}), clock
}

func TestJobRegistry_CreateAndGet(t *testing.T) {
	reg, clock := newTestRegistry(t)

	created, err := reg.Create(model.GenerateParams{Title: "Brief", Recipient: "a@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.JobStatusRunning, created.Status)
	assert.Equal(t, clock.Now(), created.CreatedAt)

	got, ok := reg.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, created, got)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestJobRegistry_CreateRetriesOnIDCollision(t *testing.T) {
	ids := []string{"dup", "dup", "fresh"}
	var i int
	reg := NewJobRegistry(JobRegistryOptions{NewID: func() string {
		id := ids[i]
		i++
		return id
	}})

	first, err := reg.Create(model.GenerateParams{})
	require.NoError(t, err)
	second, err := reg.Create(model.GenerateParams{})
	require.NoError(t, err)

	assert.Equal(t, "dup", first.ID)
	assert.Equal(t, "fresh", second.ID)
}

func TestJobRegistry_GetReturnsCopy(t *testing.T) {
	reg, _ := newTestRegistry(t)
	created, err := reg.Create(model.GenerateParams{Title: "Brief"})
	require.NoError(t, err)

	got, _ := reg.Get(created.ID)
	got.Status = model.JobStatusFailed

	again, _ := reg.Get(created.ID)
	assert.Equal(t, model.JobStatusRunning, again.Status)
}

func TestJobRegistry_CopiesDoNotShareMapsOrResult(t *testing.T) {
	reg, _ := newTestRegistry(t)
	params := model.GenerateParams{
		Title:    "Brief",
		Content:  model.ContentSpec{Extra: map[string]string{"sector": "energy"}},
		Metadata: map[string]string{"source": "api"},
	}
	created, err := reg.Create(params)
	require.NoError(t, err)

	params.Metadata["source"] = "caller"
	created.Params.Content.Extra["sector"] = "mutated"

	_, err = reg.Update(created.ID, func(j *model.Job) error {
		j.Status = model.JobStatusCompleted
		j.Result = &model.ArtifactRef{Filename: "Brief.pdf", PageCount: 2}
		return nil
	})
	require.NoError(t, err)

	got, ok := reg.Get(created.ID)
	require.True(t, ok)
	got.Params.Metadata["source"] = "reader"
	got.Result.PageCount = 99

	again, _ := reg.Get(created.ID)
	assert.Equal(t, "api", again.Params.Metadata["source"])
	assert.Equal(t, "energy", again.Params.Content.Extra["sector"])
	require.NotNil(t, again.Result)
	assert.Equal(t, 2, again.Result.PageCount)
}

func TestJobRegistry_Update(t *testing.T) {
	t.Run("valid transition stamps updated_at", func(t *testing.T) {
		reg, clock := newTestRegistry(t)
		created, _ := reg.Create(model.GenerateParams{})
		clock.AddTime(time.Second)

		updated, err := reg.Update(created.ID, func(j *model.Job) error {
			j.Status = model.JobStatusTimedOutBackground
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusTimedOutBackground, updated.Status)
		assert.Equal(t, created.CreatedAt.Add(time.Second), updated.UpdatedAt)
	})

	t.Run("invalid transition leaves record untouched", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		created, _ := reg.Create(model.GenerateParams{})

		_, err := reg.Update(created.ID, func(j *model.Job) error {
			j.Status = model.JobStatusCompletedAndSent
			return nil
		})
		require.ErrorIs(t, err, ErrInvalidTransition)

		got, _ := reg.Get(created.ID)
		assert.Equal(t, model.JobStatusRunning, got.Status)
	})

	t.Run("terminal record rejects mutation", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		created, _ := reg.Create(model.GenerateParams{})
		_, err := reg.Update(created.ID, func(j *model.Job) error {
			j.Fail(model.StageRender, errors.New("boom"))
			return nil
		})
		require.NoError(t, err)

		_, err = reg.Update(created.ID, func(j *model.Job) error {
			j.Error = "overwritten"
			return nil
		})
		require.ErrorIs(t, err, ErrJobTerminal)

		got, _ := reg.Get(created.ID)
		assert.Equal(t, "render: boom", got.Error)
	})

	t.Run("mutation error aborts", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		created, _ := reg.Create(model.GenerateParams{})
		sentinel := errors.New("precondition failed")

		_, err := reg.Update(created.ID, func(j *model.Job) error {
			j.Status = model.JobStatusFailed
			return sentinel
		})
		require.ErrorIs(t, err, sentinel)

		got, _ := reg.Get(created.ID)
		assert.Equal(t, model.JobStatusRunning, got.Status)
	})

	t.Run("result requires success status", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		created, _ := reg.Create(model.GenerateParams{})

		_, err := reg.Update(created.ID, func(j *model.Job) error {
			j.Result = &model.ArtifactRef{Filename: "x.pdf"}
			return nil
		})
		require.ErrorIs(t, err, ErrResultNotAllowed)
	})

	t.Run("identity fields are preserved", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		created, _ := reg.Create(model.GenerateParams{Recipient: "a@example.com"})

		updated, err := reg.Update(created.ID, func(j *model.Job) error {
			j.ID = "other"
			j.Params.Recipient = "b@example.com"
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "a@example.com", updated.Recipient())
	})

	t.Run("unknown id", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		_, err := reg.Update("missing", func(*model.Job) error { return nil })
		require.ErrorIs(t, err, ErrJobNotFound)

		_, err = reg.Update("", func(*model.Job) error { return nil })
		require.ErrorIs(t, err, ErrJobIDRequired)
	})
}

func TestJobRegistry_DeleteAndDeleteIf(t *testing.T) {
	reg, _ := newTestRegistry(t)
	a, _ := reg.Create(model.GenerateParams{Title: "a"})
	b, _ := reg.Create(model.GenerateParams{Title: "b"})

	assert.True(t, reg.Delete(a.ID))
	assert.False(t, reg.Delete(a.ID))

	assert.False(t, reg.DeleteIf(b.ID, func(j model.Job) bool { return j.Params.Title == "nope" }))
	assert.True(t, reg.DeleteIf(b.ID, func(j model.Job) bool { return j.Params.Title == "b" }))
	assert.Zero(t, reg.Len())
}

func TestJobRegistry_Close(t *testing.T) {
	reg, _ := newTestRegistry(t)
	_, _ = reg.Create(model.GenerateParams{})
	reg.Close()

	assert.Zero(t, reg.Len())
	_, err := reg.Create(model.GenerateParams{})
	require.ErrorIs(t, err, ErrRegistryClosed)
}

func TestJobRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewJobRegistry(JobRegistryOptions{})
	const writers = 16
	const perWriter = 50

	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				j, err := reg.Create(model.GenerateParams{Title: fmt.Sprintf("%d-%d", w, i)})
				if err != nil {
					t.Error(err)
					return
				}
				_, _ = reg.Update(j.ID, func(job *model.Job) error {
					job.Status = model.JobStatusTimedOutBackground
					return nil
				})
				_, _ = reg.Get(j.ID)
			}
		}()
	}

	// Sweep concurrently with the writers.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 100 {
			for _, id := range reg.Keys() {
				reg.DeleteIf(id, func(j model.Job) bool { return j.Params.Title == "never" })
			}
			_ = reg.CountByStatus()
		}
	}()

	wg.Wait()
	assert.Equal(t, writers*perWriter, reg.Len())
	assert.Equal(t, writers*perWriter, reg.CountByStatus()[model.JobStatusTimedOutBackground])
}
