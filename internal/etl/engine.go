package etl

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// ── Engine ─────────────────────────────────────────────────
// Orchestrates one run: for each endpoint, extract the full list,
// transform every item in order, write the batch. Endpoints are
// processed one at a time; a persistent list-fetch failure aborts only
// that endpoint, never the run.

// Fetcher issues a GET and returns the decoded JSON value.
type Fetcher interface {
	GetJSON(ctx context.Context, url string) (any, error)
}

// Writer persists a batch of documents for an endpoint and returns how
// many were stored.
type Writer interface {
	Write(ctx context.Context, endpoint string, docs []Document) (int, error)
}

// Engine runs the extract → transform → load pipeline.
type Engine struct {
	Fetcher Fetcher
	Writer  Writer
	APIBase string
	// PoliteDelay is the pause between per-item detail fetches, to
	// avoid hammering the source API. Zero disables it.
	PoliteDelay time.Duration
}

// EndpointResult holds per-endpoint counters for one run.
type EndpointResult struct {
	Endpoint       string        `json:"endpoint"`
	Fetched        int           `json:"fetched"`
	Transformed    int           `json:"transformed"`
	Stored         int           `json:"stored"`
	DetailFailures int           `json:"detailFailures"`
	Duration       time.Duration `json:"duration"`
	Status         string        `json:"status"` // "success" | "error"
	Error          string        `json:"error,omitempty"`
}

// RunResult is the outcome of one full run across all endpoints.
type RunResult struct {
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	Endpoints  []EndpointResult `json:"endpoints"`
}

// Run processes the given endpoints sequentially. It never returns an
// error: failures are isolated per endpoint and reported in the result.
func (e *Engine) Run(ctx context.Context, endpoints []Endpoint) *RunResult {
	result := &RunResult{StartedAt: time.Now()}

	for _, ep := range endpoints {
		res := e.syncEndpoint(ctx, ep)
		result.Endpoints = append(result.Endpoints, res)

		if res.Status == "error" {
			log.Printf("sync: %s failed: %s", ep.Path, res.Error)
		} else {
			log.Printf("sync: %s fetched=%d transformed=%d stored=%d in %s",
				ep.Path, res.Fetched, res.Transformed, res.Stored, res.Duration.Round(time.Millisecond))
		}
	}

	result.FinishedAt = time.Now()
	return result
}

func (e *Engine) syncEndpoint(ctx context.Context, ep Endpoint) EndpointResult {
	start := time.Now()
	res := EndpointResult{Endpoint: ep.Path, Status: "success"}

	records, detailFailures, err := e.extract(ctx, ep)
	if err != nil {
		res.Status = "error"
		res.Error = fmt.Sprintf("extract: %s", err)
		res.Duration = time.Since(start)
		return res
	}
	res.Fetched = len(records)
	res.DetailFailures = detailFailures

	docs := make([]Document, 0, len(records))
	for i, rec := range records {
		docs = append(docs, Transform(rec, ep.Path, i+1, e.APIBase))
	}
	res.Transformed = len(docs)

	stored, err := e.Writer.Write(ctx, ep.Path, docs)
	res.Stored = stored
	if err != nil {
		res.Status = "error"
		res.Error = fmt.Sprintf("write: %s", err)
	}

	res.Duration = time.Since(start)
	return res
}

// extract fetches the endpoint's full list and optionally enriches each
// item via a per-id detail fetch. The second return value counts detail
// fetches that failed (the base item is kept in that case).
func (e *Engine) extract(ctx context.Context, ep Endpoint) ([]map[string]any, int, error) {
	url := strings.TrimRight(e.APIBase, "/") + ep.Path

	data, err := e.Fetcher.GetJSON(ctx, url)
	if err != nil {
		return nil, 0, err
	}

	records := toRecords(data)
	if !ep.FetchDetails {
		return records, 0, nil
	}

	// Detail enrichment: best-effort. A failed detail fetch is logged
	// and the list item is kept as-is; one item's failure never aborts
	// the batch.
	failures := 0
	for i, rec := range records {
		id, ok := rec["id"]
		if !ok {
			continue
		}

		detailURL := fmt.Sprintf("%s/%v", url, id)
		detail, err := e.Fetcher.GetJSON(ctx, detailURL)
		if err != nil {
			log.Printf("sync: detail fetch for %s id=%v failed, keeping list item: %v", ep.Path, id, err)
			failures++
		} else if m, ok := detail.(map[string]any); ok {
			records[i] = m
		}

		if e.PoliteDelay > 0 {
			select {
			case <-time.After(e.PoliteDelay):
			case <-ctx.Done():
				return records, failures, ctx.Err()
			}
		}
	}

	return records, failures, nil
}

// toRecords converts a decoded JSON response into a list of raw
// records. Arrays are taken as-is, an object carrying a "data" array
// is unwrapped, and any other object is treated as a single record.
func toRecords(data any) []map[string]any {
	switch v := data.(type) {
	case []any:
		records := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				records = append(records, m)
			}
		}
		return records
	case map[string]any:
		if inner, ok := v["data"].([]any); ok {
			return toRecords(inner)
		}
		return []map[string]any{v}
	default:
		return nil
	}
}
