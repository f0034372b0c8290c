package etl

import (
	"time"
)

// ── Transformer ────────────────────────────────────────────
// Turns one raw record into a normalized Document:
//
//	prune → stamp → identify → flatten → retain
//
// Deterministic except for the embedded current-time fields. Never
// fails: malformed or missing source fields degrade to omission.

// Transform normalizes a raw record fetched from endpoint at the given
// 1-based index. apiBase is recorded as provenance.
func Transform(raw map[string]any, endpoint string, index int, apiBase string) Document {
	pruned := Prune(raw)
	now := time.Now()
	fetchedAt := now.Format(time.RFC3339)

	doc := Document{
		"record_index":   index,
		"endpoint":       endpoint,
		"ingestion_time": now,
		"fetched_at":     fetchedAt,
		"schema_version": SchemaVersion,
		"source": map[string]any{
			"api_base":     apiBase,
			"endpoint":     endpoint,
			"retrieved_at": fetchedAt,
		},
	}

	if id, ok := pruned["id"]; ok {
		doc["_source_id"] = id
	}

	flatten(doc, pruned, endpoint)

	// Audit guarantee: the original record, unpruned.
	doc["data"] = raw

	return doc
}

// flattenRule maps one top-level output field to candidate source
// fields in the raw record. The first candidate present wins.
type flattenRule struct {
	target  string
	sources []string
}

// flattenRules is the fixed per-endpoint extraction table. Endpoints
// outside this set pass through with only the common stamping.
var flattenRules = map[string][]flattenRule{
	"/languages": {
		{target: "name", sources: []string{"name"}},
		{target: "iso_code", sources: []string{"iso6391", "isoCode"}},
	},
	"/licenses": {
		{target: "license_name", sources: []string{"name"}},
		{target: "license_url", sources: []string{"url"}},
	},
	"/maintainers": {
		{target: "maintainer_name", sources: []string{"name"}},
		{target: "maintainer_url", sources: []string{"url"}},
	},
	"/software": {
		{target: "software_name", sources: []string{"name"}},
		{target: "software_home", sources: []string{"homeUrl"}},
	},
	"/syntaxes": {
		{target: "syntax_name", sources: []string{"name"}},
	},
	"/tags": {
		{target: "tag_name", sources: []string{"name"}},
	},
}

// flatten copies the endpoint's extracted fields from the pruned record
// into the document. Absent source fields are omitted — no null
// placeholders.
func flatten(doc Document, pruned map[string]any, endpoint string) {
	for _, rule := range flattenRules[endpoint] {
		for _, src := range rule.sources {
			if v, ok := pruned[src]; ok {
				doc[rule.target] = v
				break
			}
		}
	}
}

// Prune returns a copy of m with empty values removed recursively:
// nil, empty string, empty slice, empty map. Nested maps are pruned
// depth-first; a map emptied by pruning is dropped along with its key.
// The input is never mutated. Prune is idempotent.
func Prune(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		pv, keep := pruneValue(v)
		if keep {
			out[k] = pv
		}
	}
	return out
}

func pruneValue(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		return t, t != ""
	case map[string]any:
		p := Prune(t)
		return p, len(p) > 0
	case []any:
		out := make([]any, 0, len(t))
		for _, e := range t {
			if pe, keep := pruneValue(e); keep {
				out = append(out, pe)
			}
		}
		return out, len(out) > 0
	default:
		return v, true
	}
}
