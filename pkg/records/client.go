// Package records reads the job, resume and interview records that seed an
// interview's context. It is a thin client over the records REST service.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/candorlabs/liveinterview/pkg/errors"
	"github.com/candorlabs/liveinterview/pkg/httputil"
	"github.com/candorlabs/liveinterview/runtime/logger"
	"github.com/candorlabs/liveinterview/runtime/protocol"
)

// ErrNotFound is returned when the service has no record with the given id.
var ErrNotFound = errors.New("record not found")

// maxErrorBody bounds how much of an error response is kept as detail.
const maxErrorBody = 4 << 10

// Interview statuses accepted by UpdateInterviewStatus.
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Job is a job description record.
type Job struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Company         string `json:"company"`
	DescriptionText string `json:"description_text"`
	Requirements    string `json:"requirements,omitempty"`
	SkillsRequired  string `json:"skills_required,omitempty"`
	ExperienceLevel string `json:"experience_level,omitempty"`
	Location        string `json:"location,omitempty"`
}

// Resume is a candidate resume record.
type Resume struct {
	ID              int    `json:"id"`
	CandidateName   string `json:"candidate_name"`
	Email           string `json:"email,omitempty"`
	ResumeText      string `json:"resume_text"`
	Skills          string `json:"skills,omitempty"`
	Education       string `json:"education,omitempty"`
	ExperienceYears int    `json:"experience_years,omitempty"`
}

// Interview links a job and a resume to a live session.
type Interview struct {
	ID               int    `json:"id"`
	JobDescriptionID int    `json:"job_description_id"`
	ResumeID         int    `json:"resume_id"`
	SessionID        string `json:"session_id"`
	Status           string `json:"status,omitempty"`
}

// InterviewDetails is the expanded interview record.
type InterviewDetails struct {
	Interview      Interview `json:"interview"`
	JobDescription *Job      `json:"job_description,omitempty"`
	Resume         *Resume   `json:"resume,omitempty"`
}

// Client talks to the records service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the traced default client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// NewClient creates a client for baseURL. Non-positive timeouts use
// httputil.DefaultRecordsTimeout.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = httputil.DefaultRecordsTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httputil.NewTracedClient(timeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Job fetches a job description.
func (c *Client) Job(ctx context.Context, id int) (*Job, error) {
	var job Job
	if err := c.do(ctx, "GetJob", http.MethodGet, "/api/jobs/"+strconv.Itoa(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Resume fetches a resume.
func (c *Client) Resume(ctx context.Context, id int) (*Resume, error) {
	var resume Resume
	if err := c.do(ctx, "GetResume", http.MethodGet, "/api/resumes/"+strconv.Itoa(id), nil, &resume); err != nil {
		return nil, err
	}
	return &resume, nil
}

// Interview fetches an interview with its job and resume.
func (c *Client) Interview(ctx context.Context, id int) (*InterviewDetails, error) {
	var details InterviewDetails
	if err := c.do(ctx, "GetInterview", http.MethodGet, "/api/interviews/"+strconv.Itoa(id), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// UpdateInterviewStatus sets an interview's status.
func (c *Client) UpdateInterviewStatus(ctx context.Context, id int, status string) error {
	if status == "" {
		return pkgerrors.New(pkgerrors.ComponentRecords, "UpdateInterviewStatus", errors.New("status is required"))
	}
	body := map[string]string{"status": status}
	return c.do(ctx, "UpdateInterviewStatus", http.MethodPut,
		"/api/interviews/"+strconv.Itoa(id)+"/status", body, nil)
}

// InterviewContext resolves an interview to the context envelope sent when
// the session opens. Missing job or resume records leave their field empty.
func (c *Client) InterviewContext(ctx context.Context, interviewID int) (protocol.ContextMessage, error) {
	details, err := c.Interview(ctx, interviewID)
	if err != nil {
		return protocol.ContextMessage{}, err
	}

	job := details.JobDescription
	if job == nil && details.Interview.JobDescriptionID != 0 {
		if job, err = c.Job(ctx, details.Interview.JobDescriptionID); err != nil && !errors.Is(err, ErrNotFound) {
			return protocol.ContextMessage{}, err
		}
	}
	resume := details.Resume
	if resume == nil && details.Interview.ResumeID != 0 {
		if resume, err = c.Resume(ctx, details.Interview.ResumeID); err != nil && !errors.Is(err, ErrNotFound) {
			return protocol.ContextMessage{}, err
		}
	}

	var msg protocol.ContextMessage
	if job != nil {
		msg.JobDescriptionText = job.DescriptionText
	}
	if resume != nil {
		msg.ResumeText = resume.ResumeText
	}
	logger.DebugContext(ctx, "Resolved interview context",
		"interview_id", interviewID,
		"resume_chars", len(msg.ResumeText),
		"job_chars", len(msg.JobDescriptionText))
	return msg, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.New(pkgerrors.ComponentRecords, op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.New(pkgerrors.ComponentRecords, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.New(pkgerrors.ComponentRecords, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.New(pkgerrors.ComponentRecords, op, ErrNotFound).WithStatusCode(resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.ComponentRecords, op, fmt.Errorf("unexpected status: %s", resp.Status)).
			WithStatusCode(resp.StatusCode).
			WithDetails(map[string]any{"path": path, "detail": errorDetail(resp.Body)})
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.New(pkgerrors.ComponentRecords, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// errorDetail extracts {"detail": ...} bodies, falling back to the raw text.
func errorDetail(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var body struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil && body.Detail != "" {
		return body.Detail
	}
	return strings.TrimSpace(string(data))
}
