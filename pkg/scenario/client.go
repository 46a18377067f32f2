package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ErrBackend marks a definitive backend rejection, as opposed to a transient
// transport failure. Transient failures may be retried by the caller;
// backend errors may not.
var ErrBackend = errors.New("backend error")

// IsTransient reports whether a client error is worth retrying
func IsTransient(err error) bool {
	return err != nil && !errors.Is(err, ErrBackend)
}

// Client talks the job submission/poll protocol of an openEO-style backend:
// POST a process graph to create a job, GET the job for its lifecycle
// status, GET its results for the produced artifact reference.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    map[string]string
}

// NewClient constructs a client for the backend at baseURL
func NewClient(baseURL string, timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		headers:    headers,
	}
}

// SubmitJob creates a job from the process graph and returns the backend's
// job identifier. The identifier is taken from the response body "id" field,
// the OpenEO-Identifier header, or the Location header tail, in that order.
func (c *Client) SubmitJob(ctx context.Context, sc *Scenario) (string, error) {
	payload := map[string]interface{}{
		"title": sc.Name,
		"process": map[string]interface{}{
			"process_graph": sc.ProcessGraph,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("job submission returned %s: %w", resp.Status, ErrBackend)
	}

	var created struct {
		ID string `json:"id"`
	}
	// A body is optional on creation, so decode failures are not fatal
	if data, err := io.ReadAll(resp.Body); err == nil && len(data) > 0 {
		json.Unmarshal(data, &created)
	}
	if created.ID != "" {
		return created.ID, nil
	}
	if id := resp.Header.Get("OpenEO-Identifier"); id != "" {
		return id, nil
	}
	if loc := resp.Header.Get("Location"); loc != "" {
		parts := strings.Split(strings.TrimRight(loc, "/"), "/")
		if id := parts[len(parts)-1]; id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("job created but no identifier returned: %w", ErrBackend)
}

// JobStatus fetches the backend's lifecycle status for a job and maps it
// into the closed internal status set. The backend vocabulary is open, so
// unknown values map to RUNNING and the caller keeps polling; that leniency
// beats trusting arbitrary external strings.
func (c *Client) JobStatus(ctx context.Context, jobID string) (Status, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return "", "", err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		// Server-side trouble is transient from the poller's point of view
		return "", "", fmt.Errorf("job status returned %s", resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("job status returned %s: %w", resp.Status, ErrBackend)
	}

	var job struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return "", "", fmt.Errorf("decode job status: %w", err)
	}

	message := job.Message
	if message == "" {
		message = job.Error.Message
	}
	return mapBackendStatus(job.Status), message, nil
}

// JobResults fetches the result document for a completed job and returns a
// reference to the produced artifact: the canonical link if present,
// otherwise the first asset href (by name, for determinism), otherwise the
// results URL itself.
func (c *Client) JobResults(ctx context.Context, jobID string) (string, error) {
	resultsURL := c.baseURL + "/jobs/" + jobID + "/results"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultsURL, nil)
	if err != nil {
		return "", err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("job results returned %s", resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("job results returned %s: %w", resp.Status, ErrBackend)
	}

	var doc struct {
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
		Assets map[string]struct {
			Href string `json:"href"`
		} `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode job results: %w", err)
	}

	for _, link := range doc.Links {
		if link.Rel == "canonical" && link.Href != "" {
			return link.Href, nil
		}
	}

	names := make([]string, 0, len(doc.Assets))
	for name := range doc.Assets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if href := doc.Assets[name].Href; href != "" {
			return href, nil
		}
	}

	return resultsURL, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}
}

// mapBackendStatus folds the backend's open status vocabulary into the
// closed internal set
func mapBackendStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "created", "queued", "submitted":
		return StatusQueued
	case "running", "processing", "started":
		return StatusRunning
	case "finished", "done", "succeeded", "completed":
		return StatusCompleted
	case "error", "failed", "canceled", "cancelled":
		return StatusFailed
	default:
		return StatusRunning
	}
}
