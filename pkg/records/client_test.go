package records

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/candorlabs/liveinterview/pkg/errors"
	"github.com/candorlabs/liveinterview/runtime/protocol"
)

func newServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var statuses []string
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("GET /api/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "3" {
			http.Error(w, `{"detail":"Job description not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, Job{ID: 3, Title: "Backend Engineer", DescriptionText: "Build services in Go."})
	})
	mux.HandleFunc("GET /api/resumes/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Resume{ID: 5, CandidateName: "Sam", ResumeText: "Ten years of distributed systems."})
	})
	mux.HandleFunc("GET /api/interviews/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "1":
			writeJSON(w, InterviewDetails{
				Interview:      Interview{ID: 1, JobDescriptionID: 3, ResumeID: 5, SessionID: "abc"},
				JobDescription: &Job{ID: 3, DescriptionText: "Inline job."},
			})
		case "500":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"Database not available"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("PUT /api/interviews/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		statuses = append(statuses, body["status"])
		writeJSON(w, map[string]any{"interview": Interview{ID: 1, Status: body["status"]}})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &statuses
}

func TestClient_Job(t *testing.T) {
	server, _ := newServer(t)
	c := NewClient(server.URL+"/", 0)

	job, err := c.Job(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", job.Title)

	_, err = c.Job(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, http.StatusNotFound, pkgerrors.StatusCode(err))
}

func TestClient_InterviewContext(t *testing.T) {
	server, _ := newServer(t)
	c := NewClient(server.URL, 0)

	msg, err := c.InterviewContext(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, protocol.ContextMessage{
		ResumeText:         "Ten years of distributed systems.",
		JobDescriptionText: "Inline job.",
	}, msg)

	_, err = c.InterviewContext(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ServerError(t *testing.T) {
	server, _ := newServer(t)
	c := NewClient(server.URL, 0)

	_, err := c.Interview(context.Background(), 500)
	require.Error(t, err)
	var ce *pkgerrors.ContextualError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, pkgerrors.ComponentRecords, ce.Component)
	assert.Equal(t, "GetInterview", ce.Operation)
	assert.Equal(t, http.StatusInternalServerError, ce.StatusCode)
	assert.Equal(t, "Database not available", ce.Details["detail"])
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestClient_UpdateInterviewStatus(t *testing.T) {
	server, statuses := newServer(t)
	c := NewClient(server.URL, 0, WithHTTPClient(server.Client()))

	require.NoError(t, c.UpdateInterviewStatus(context.Background(), 1, StatusCompleted))
	assert.Equal(t, []string{StatusCompleted}, *statuses)

	assert.Error(t, c.UpdateInterviewStatus(context.Background(), 1, ""))
}
