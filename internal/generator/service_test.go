// internal/generator/service_test.go
package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/classkit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pollRequest() Request {
	return Request{Activity: models.ActivityAgreeDisagree, Level: models.LevelB1, Count: 3, Topic: "school"}
}

func waitForState(t *testing.T, s *Service, id uuid.UUID, want JobState) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		var err error
		job, err = s.Job(id)
		return err == nil && job.State == want
	}, 2*time.Second, 5*time.Millisecond, "job never reached %s", want)
	return job
}

func TestService_GenerateSuccess(t *testing.T) {
	s := NewService(NewMockGenerator(), ServiceConfig{Timeout: time.Second})
	res, err := s.Generate(context.Background(), pollRequest())
	require.NoError(t, err)
	assert.Equal(t, SourceGenerator, res.Source)
	assert.Len(t, res.Items, 3)
	assert.Empty(t, res.Warning)
}

func TestService_GenerateRejectsInvalidRequest(t *testing.T) {
	s := NewService(NewMockGenerator(), ServiceConfig{})
	_, err := s.Generate(context.Background(), Request{Activity: models.ActivityAgreeDisagree})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestService_FallbackOnFailure(t *testing.T) {
	gen := &MockGenerator{Err: errors.New("network down")}
	s := NewService(gen, ServiceConfig{Fallback: true})

	res, err := s.Generate(context.Background(), pollRequest())
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Len(t, res.Items, 3)
	assert.Contains(t, res.Warning, "network down")
	for _, it := range res.Items {
		require.NoError(t, models.ValidateItem(models.ActivityAgreeDisagree, it))
	}
}

func TestService_FailureWithoutFallback(t *testing.T) {
	gen := &MockGenerator{Err: ErrNoValidItems}
	s := NewService(gen, ServiceConfig{})

	_, err := s.Generate(context.Background(), pollRequest())
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestService_TimeoutFallsBack(t *testing.T) {
	gen := &MockGenerator{Delay: time.Second}
	s := NewService(gen, ServiceConfig{Timeout: 20 * time.Millisecond, Fallback: true})

	res, err := s.Generate(context.Background(), pollRequest())
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Contains(t, res.Warning, context.DeadlineExceeded.Error())
}

func TestService_CallerCancellationSkipsFallback(t *testing.T) {
	gen := &MockGenerator{Delay: time.Second}
	s := NewService(gen, ServiceConfig{Fallback: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Generate(ctx, pollRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_JobLifecycle(t *testing.T) {
	s := NewService(NewMockGenerator(), ServiceConfig{})
	t.Cleanup(s.Close)

	id, err := s.StartJob(pollRequest())
	require.NoError(t, err)

	job := waitForState(t, s, id, JobSucceeded)
	require.NotNil(t, job.Result)
	assert.Len(t, job.Result.Items, 3)
	assert.NotNil(t, job.FinishedAt)

	// Cancelling a finished job leaves it alone.
	job, err = s.CancelJob(id)
	require.NoError(t, err)
	assert.Equal(t, JobSucceeded, job.State)
}

func TestService_CancelJob(t *testing.T) {
	s := NewService(&MockGenerator{Delay: 5 * time.Second}, ServiceConfig{Fallback: true})
	t.Cleanup(s.Close)

	id, err := s.StartJob(pollRequest())
	require.NoError(t, err)

	job, err := s.CancelJob(id)
	require.NoError(t, err)
	assert.Equal(t, JobCancelled, job.State)

	// The worker exits promptly and does not overwrite the cancelled state with fallback content.
	time.Sleep(20 * time.Millisecond)
	job, err = s.Job(id)
	require.NoError(t, err)
	assert.Equal(t, JobCancelled, job.State)
	assert.Nil(t, job.Result)
}

func TestService_FailedJob(t *testing.T) {
	s := NewService(&MockGenerator{Err: ErrNoValidItems}, ServiceConfig{})
	t.Cleanup(s.Close)

	id, err := s.StartJob(pollRequest())
	require.NoError(t, err)
	job := waitForState(t, s, id, JobFailed)
	assert.Contains(t, job.Error, "no valid items")
}

func TestService_UnknownJob(t *testing.T) {
	s := NewService(NewMockGenerator(), ServiceConfig{})
	_, err := s.Job(uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = s.CancelJob(uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = s.StartJob(Request{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestMockGenerator_ShapesAndExclusions(t *testing.T) {
	gen := NewMockGenerator()
	for _, activity := range models.Activities() {
		items, err := gen.Generate(context.Background(), Request{Activity: activity, Level: models.LevelA2, Count: 4})
		require.NoError(t, err, activity)
		require.Len(t, items, 4, activity)
		for _, it := range items {
			require.NoError(t, models.ValidateItem(activity, it), activity)
		}
	}

	first, err := gen.Generate(context.Background(), Request{Activity: models.ActivityDiscussionCards, Level: models.LevelA2, Count: 2})
	require.NoError(t, err)
	next, err := gen.Generate(context.Background(), Request{
		Activity: models.ActivityDiscussionCards, Level: models.LevelA2, Count: 2,
		Exclude: []string{first[0].Text, first[1].Text},
	})
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.NotEqual(t, first[0].Text, next[0].Text)
	assert.NotEqual(t, first[1].Text, next[1].Text)
}

func TestFallbackItems(t *testing.T) {
	for _, activity := range models.Activities() {
		items := FallbackItems(Request{Activity: activity, Count: 20})
		require.NotEmpty(t, items, activity)
		for _, it := range items {
			require.NoError(t, models.ValidateItem(activity, it), activity)
		}
	}

	items := FallbackItems(Request{Activity: models.ActivityThisOrThat, Count: 2, Exclude: []string{"drinks"}})
	require.Len(t, items, 2)
	assert.Equal(t, "Holidays", items[0].Text)
}
