package etl

// ── Record / Document ──────────────────────────────────────
// A raw record is the untouched JSON object the API returned for one
// item (map[string]any after decoding). A Document is the normalized,
// metadata-enriched form that gets persisted. Documents keep the full
// raw record under "data" as an audit guarantee.

// SchemaVersion is stamped into every Document.
const SchemaVersion = 1.0

// Document is one normalized record ready for the storage writer.
type Document map[string]any

// Endpoint is one fixed REST resource path on the source API.
type Endpoint struct {
	Path string
	// FetchDetails enables the per-item detail fetch
	// (GET <path>/<id>) during extraction. Best-effort: a failed
	// detail fetch falls back to the list item.
	FetchDetails bool
}

// DefaultEndpoints is the fixed set the connector targets.
var DefaultEndpoints = []Endpoint{
	{Path: "/languages"},
	{Path: "/licenses"},
	{Path: "/maintainers"},
	{Path: "/software"},
	{Path: "/syntaxes"},
	{Path: "/tags"},
}

// ListsEndpoint is the optional, slower endpoint with per-item detail
// enrichment. Opt-in via the CLI.
var ListsEndpoint = Endpoint{Path: "/lists", FetchDetails: true}
