package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eobench/eobench/pkg/endpoint"
)

// Result holds the outcome of one probe against one endpoint.
// Exactly one of (HTTPStatus, LatencyMs) or Error is populated: any HTTP
// response, including 4xx/5xx, is data rather than a probe failure.
type Result struct {
	Endpoint   string
	URL        string
	Timestamp  time.Time
	HTTPStatus *int
	LatencyMs  *float64
	Error      string
}

// Success reports whether the probe reached the endpoint at all
func (r Result) Success() bool {
	return r.Error == ""
}

// Prober issues timed HTTP requests against capability endpoints
type Prober struct {
	client  *http.Client
	headers map[string]string
	log     logrus.FieldLogger
}

// New creates a Prober with a per-request timeout and optional extra headers
func New(timeout time.Duration, headers map[string]string, log logrus.FieldLogger) *Prober {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Prober{
		client:  &http.Client{Timeout: timeout},
		headers: headers,
		log:     log,
	}
}

// Probe issues a single GET against the endpoint and measures wall-clock
// latency from request sent to full response body received. Network, DNS,
// TLS and timeout failures populate Error; no retries happen at this layer.
func (p *Prober) Probe(ctx context.Context, ep endpoint.Endpoint) Result {
	result := Result{
		Endpoint:  ep.DisplayName(),
		URL:       ep.URL,
		Timestamp: time.Now(),
	}

	if err := ep.Validate(); err != nil {
		result.Error = endpoint.ErrInvalidEndpoint.Error()
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		result.Error = endpoint.ErrInvalidEndpoint.Error()
		return result
	}
	for name, value := range p.headers {
		req.Header.Set(name, value)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	// Latency covers the full body, not just the headers
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		result.Error = err.Error()
		return result
	}
	latency := float64(time.Since(start).Microseconds()) / 1000.0

	status := resp.StatusCode
	result.HTTPStatus = &status
	result.LatencyMs = &latency
	return result
}

// ProbeAll probes every endpoint in order, one at a time. Failures never
// abort the batch; the returned slice always has one result per endpoint,
// in input order.
func (p *Prober) ProbeAll(ctx context.Context, endpoints []endpoint.Endpoint) []Result {
	results := make([]Result, 0, len(endpoints))
	for _, ep := range endpoints {
		r := p.Probe(ctx, ep)
		if r.Success() {
			p.log.WithFields(logrus.Fields{
				"endpoint": r.Endpoint,
				"status":   *r.HTTPStatus,
				"latency":  *r.LatencyMs,
			}).Debug("probe completed")
		} else {
			p.log.WithFields(logrus.Fields{
				"endpoint": r.Endpoint,
				"error":    r.Error,
			}).Warn("probe failed")
		}
		results = append(results, r)
	}
	return results
}
