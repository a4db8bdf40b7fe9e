// internal/handlers/generate_test.go
package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/classkit/internal/generator"
	"github.com/jason-s-yu/classkit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationJob(t *testing.T) {
	h := newTestServer(t).Routes()

	w := doJSON(t, h, http.MethodPost, "/generate", generator.Request{
		Activity: models.ActivityDiscussionCards,
		Level:    "b1",
		Count:    3,
		Topic:    "travel",
	}, nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	started := decodeBody[map[string]uuid.UUID](t, w)
	id := started["job_id"]
	require.NotEqual(t, uuid.Nil, id)

	var job generator.Job
	require.Eventually(t, func() bool {
		w := doJSON(t, h, http.MethodGet, "/generate/"+id.String(), nil, nil)
		if w.Code != http.StatusOK {
			return false
		}
		job = decodeBody[generator.Job](t, w)
		return job.State == generator.JobSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	require.NotNil(t, job.Result)
	assert.Len(t, job.Result.Items, 3)
	assert.Equal(t, generator.SourceGenerator, job.Result.Source)
}

func TestGenerationJob_InvalidRequest(t *testing.T) {
	h := newTestServer(t).Routes()
	w := doJSON(t, h, http.MethodPost, "/generate", generator.Request{Activity: "karaoke"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerationJob_Cancel(t *testing.T) {
	s := newTestServer(t)
	s.Generator = generator.NewService(&generator.MockGenerator{Delay: time.Minute}, generator.ServiceConfig{})
	h := s.Routes()

	w := doJSON(t, h, http.MethodPost, "/generate", generator.Request{Activity: models.ActivityAgreeDisagree}, nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	id := decodeBody[map[string]uuid.UUID](t, w)["job_id"]

	w = doJSON(t, h, http.MethodDelete, "/generate/"+id.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	job := decodeBody[generator.Job](t, w)
	assert.Equal(t, generator.JobCancelled, job.State)
	s.Generator.Close()
}

func TestGenerationJob_Unknown(t *testing.T) {
	h := newTestServer(t).Routes()
	w := doJSON(t, h, http.MethodGet, "/generate/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, h, http.MethodDelete, "/generate/nope", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
