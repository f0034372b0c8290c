package etl_test

import (
	"reflect"
	"testing"
	"time"

	"filtersync/internal/etl"
)

// ─────────────────────────────────────────────────────────────
// Transformer unit tests — prune, stamp, identify, flatten, retain
// ─────────────────────────────────────────────────────────────

func TestTransform_LanguagesScenario(t *testing.T) {
	raw := map[string]any{"id": float64(5), "name": "English", "isoCode": "en"}

	doc := etl.Transform(raw, "/languages", 1, "https://api.filterlists.com")

	if got := doc["_source_id"]; got != float64(5) {
		t.Errorf("_source_id = %v, want 5", got)
	}
	if got := doc["name"]; got != "English" {
		t.Errorf("name = %v, want English", got)
	}
	if got := doc["iso_code"]; got != "en" {
		t.Errorf("iso_code = %v, want en", got)
	}
	if got := doc["endpoint"]; got != "/languages" {
		t.Errorf("endpoint = %v, want /languages", got)
	}
	if got := doc["record_index"]; got != 1 {
		t.Errorf("record_index = %v, want 1", got)
	}
	if !reflect.DeepEqual(doc["data"], raw) {
		t.Errorf("data = %v, want the raw record %v", doc["data"], raw)
	}
}

func TestTransform_RetainsRawDataVerbatim(t *testing.T) {
	raw := map[string]any{
		"id":          float64(9),
		"name":        "uBlock Origin",
		"description": nil,
		"tags":        []any{},
	}

	doc := etl.Transform(raw, "/software", 3, "https://api.filterlists.com")

	data, ok := doc["data"].(map[string]any)
	if !ok {
		t.Fatalf("data is %T, want map", doc["data"])
	}
	if !reflect.DeepEqual(data, raw) {
		t.Errorf("data = %v, want unmodified raw %v", data, raw)
	}
	// The null field survives inside data but never reaches the top level.
	if v, ok := data["description"]; !ok || v != nil {
		t.Errorf("data.description = %v (present=%v), want nil and present", v, ok)
	}
	if _, ok := doc["description"]; ok {
		t.Error("top-level description should be absent")
	}
}

func TestTransform_StampsMetadata(t *testing.T) {
	doc := etl.Transform(map[string]any{"id": float64(1)}, "/tags", 1, "https://example.test")

	if got := doc["schema_version"]; got != etl.SchemaVersion {
		t.Errorf("schema_version = %v, want %v", got, etl.SchemaVersion)
	}
	if _, ok := doc["ingestion_time"].(time.Time); !ok {
		t.Errorf("ingestion_time is %T, want time.Time", doc["ingestion_time"])
	}

	fetchedAt, ok := doc["fetched_at"].(string)
	if !ok {
		t.Fatalf("fetched_at is %T, want string", doc["fetched_at"])
	}
	if _, err := time.Parse(time.RFC3339, fetchedAt); err != nil {
		t.Errorf("fetched_at %q is not RFC3339: %v", fetchedAt, err)
	}

	src, ok := doc["source"].(map[string]any)
	if !ok {
		t.Fatalf("source is %T, want map", doc["source"])
	}
	if src["api_base"] != "https://example.test" {
		t.Errorf("source.api_base = %v", src["api_base"])
	}
	if src["endpoint"] != "/tags" {
		t.Errorf("source.endpoint = %v", src["endpoint"])
	}
	if src["retrieved_at"] != fetchedAt {
		t.Errorf("source.retrieved_at = %v, want %v", src["retrieved_at"], fetchedAt)
	}
}

func TestTransform_FlattenTable(t *testing.T) {
	cases := []struct {
		endpoint string
		raw      map[string]any
		want     map[string]any
		absent   []string
	}{
		{
			endpoint: "/languages",
			raw:      map[string]any{"name": "German", "iso6391": "de"},
			want:     map[string]any{"name": "German", "iso_code": "de"},
		},
		{
			endpoint: "/licenses",
			raw:      map[string]any{"name": "MIT", "url": "https://mit.test"},
			want:     map[string]any{"license_name": "MIT", "license_url": "https://mit.test"},
		},
		{
			endpoint: "/maintainers",
			raw:      map[string]any{"name": "Jane", "url": "https://jane.test"},
			want:     map[string]any{"maintainer_name": "Jane", "maintainer_url": "https://jane.test"},
		},
		{
			endpoint: "/software",
			raw:      map[string]any{"name": "AdGuard", "homeUrl": "https://adguard.test"},
			want:     map[string]any{"software_name": "AdGuard", "software_home": "https://adguard.test"},
		},
		{
			endpoint: "/syntaxes",
			raw:      map[string]any{"name": "hosts"},
			want:     map[string]any{"syntax_name": "hosts"},
		},
		{
			endpoint: "/tags",
			raw:      map[string]any{"name": "ads"},
			want:     map[string]any{"tag_name": "ads"},
		},
		{
			// Absent source fields are omitted, not set to null.
			endpoint: "/licenses",
			raw:      map[string]any{"name": "GPL"},
			want:     map[string]any{"license_name": "GPL"},
			absent:   []string{"license_url"},
		},
	}

	for _, tc := range cases {
		doc := etl.Transform(tc.raw, tc.endpoint, 1, "https://api.filterlists.com")
		for k, v := range tc.want {
			if got := doc[k]; got != v {
				t.Errorf("%s: %s = %v, want %v", tc.endpoint, k, got, v)
			}
		}
		for _, k := range tc.absent {
			if _, ok := doc[k]; ok {
				t.Errorf("%s: %s should be absent", tc.endpoint, k)
			}
		}
	}
}

func TestTransform_UnknownEndpointPassesThrough(t *testing.T) {
	raw := map[string]any{"id": float64(7), "name": "something"}
	doc := etl.Transform(raw, "/rules", 1, "https://api.filterlists.com")

	// Only the common stamping — no flattened fields.
	if _, ok := doc["name"]; ok {
		t.Error("unknown endpoint should not flatten name")
	}
	if doc["_source_id"] != float64(7) {
		t.Errorf("_source_id = %v, want 7", doc["_source_id"])
	}
	if !reflect.DeepEqual(doc["data"], raw) {
		t.Error("data should still retain the raw record")
	}
}

func TestPrune_RemovesEmpties(t *testing.T) {
	in := map[string]any{
		"keep":     "value",
		"zero":     float64(0),
		"null":     nil,
		"empty":    "",
		"emptyArr": []any{},
		"emptyMap": map[string]any{},
		"nested": map[string]any{
			"inner": "",
			"deep":  map[string]any{"gone": nil},
		},
		"list": []any{"a", "", nil, map[string]any{"x": ""}},
	}

	got := etl.Prune(in)

	want := map[string]any{
		"keep": "value",
		"zero": float64(0),
		"list": []any{"a"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Prune = %v, want %v", got, want)
	}
}

func TestPrune_Idempotent(t *testing.T) {
	in := map[string]any{
		"a": "x",
		"b": nil,
		"c": map[string]any{"d": "", "e": float64(1)},
	}
	once := etl.Prune(in)
	twice := etl.Prune(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("prune not idempotent: once=%v twice=%v", once, twice)
	}
}

func TestPrune_NoEmptiesUnchanged(t *testing.T) {
	in := map[string]any{"a": "x", "b": float64(2), "c": true}
	got := etl.Prune(in)
	if !reflect.DeepEqual(got, in) {
		t.Errorf("Prune = %v, want unchanged %v", got, in)
	}
}

func TestPrune_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{"a": "", "b": "x"}
	etl.Prune(in)
	if _, ok := in["a"]; !ok {
		t.Error("Prune mutated its input")
	}
}
