// Package worker talks to the external worker under test.
//
// The worker is a black box reached over HTTP: the client sends it the
// checklist's known flows (assertion names stripped of any disambiguation
// suffix, since the worker only knows bare names) and gets back the freshly
// executed flows. Any transport problem, non-2xx status, or unrecognizable
// response shape is an UnavailableError - fatal to the run, never retried
// here.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/roach88/attest/internal/model"
)

// RunPath is the path appended to a checklist's worker origin.
const RunPath = "/v0/run"

// DefaultTimeout bounds the single outbound call per run.
const DefaultTimeout = 30 * time.Second

// UnavailableError means the worker could not be reached or did not produce
// a usable response. It is fatal to the run and surfaces to the caller
// unchanged; no snapshots are written once it occurs.
type UnavailableError struct {
	Origin string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("worker unavailable: %s: %v", e.Origin, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is (or wraps) an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// Client invokes workers over HTTP.
// Safe for concurrent use; scheduled runs of different checklists share one
// client.
type Client struct {
	http *http.Client
}

// NewClient creates a worker client with the given per-call timeout.
// A zero timeout falls back to DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

// wire shapes shared by the outbound payload and the worker's response.
type wireAssertion struct {
	Name     string `json:"name"`
	Snapshot string `json:"snapshot,omitempty"`
}

type wireFlow struct {
	Name       string          `json:"name"`
	Assertions []wireAssertion `json:"assertions"`
}

type runPayload struct {
	Flows []wireFlow `json:"flows"`
}

// Run sends the checklist's known flows to the worker and returns the
// worker's freshly observed flows in reported order.
//
// The response body may be either a bare JSON array of flows or an object
// {"flows":[...]} - both are normalized to the same internal shape.
func (c *Client) Run(ctx context.Context, origin string, flows []model.Flow) ([]model.Flow, error) {
	body, err := json.Marshal(outboundPayload(flows))
	if err != nil {
		return nil, fmt.Errorf("encode run payload: %w", err)
	}

	url := strings.TrimSuffix(origin, "/") + RunPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &UnavailableError{Origin: origin, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UnavailableError{Origin: origin, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UnavailableError{
			Origin: origin,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnavailableError{Origin: origin, Err: err}
	}

	observed, err := decodeRunResponse(raw)
	if err != nil {
		return nil, &UnavailableError{Origin: origin, Err: err}
	}
	return observed, nil
}

// outboundPayload projects flows to the wire shape the worker expects:
// bare assertion names, snapshot omitted when no prior value exists.
func outboundPayload(flows []model.Flow) runPayload {
	p := runPayload{Flows: make([]wireFlow, 0, len(flows))}
	for _, f := range flows {
		wf := wireFlow{Name: f.Name, Assertions: make([]wireAssertion, 0, len(f.Assertions))}
		for _, a := range f.Assertions {
			wf.Assertions = append(wf.Assertions, wireAssertion{
				Name:     model.BaseName(a.Name),
				Snapshot: a.Snapshot,
			})
		}
		p.Flows = append(p.Flows, wf)
	}
	return p
}

// decodeRunResponse normalizes the worker's dynamic response shape.
// Observed source variants return either [{...}] or {"flows":[{...}]}.
func decodeRunResponse(raw []byte) ([]model.Flow, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response body")
	}

	var wireFlows []wireFlow
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &wireFlows); err != nil {
			return nil, fmt.Errorf("decode flow array: %w", err)
		}
	case '{':
		var obj runPayload
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("decode flow object: %w", err)
		}
		if obj.Flows == nil {
			return nil, errors.New(`response object missing "flows"`)
		}
		wireFlows = obj.Flows
	default:
		return nil, errors.New("response is neither array nor object")
	}

	flows := make([]model.Flow, 0, len(wireFlows))
	for _, wf := range wireFlows {
		f := model.Flow{Name: wf.Name, Assertions: make([]model.Assertion, 0, len(wf.Assertions))}
		for _, wa := range wf.Assertions {
			f.Assertions = append(f.Assertions, model.Assertion{
				Name:     wa.Name,
				Snapshot: wa.Snapshot,
			})
		}
		flows = append(flows, f)
	}
	return flows, nil
}
