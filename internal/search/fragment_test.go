package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbase/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestLikePattern(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"plain_text", "acme", "%acme%"},
		{"percent_escaped", "50%", `%50\%%`},
		{"underscore_escaped", "a_b", `%a\_b%`},
		{"backslash_escaped", `back\slash`, `%back\\slash%`},
		{"empty", "", "%%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, likePattern(tt.query))
		})
	}
}

func TestDefaultPostprocess(t *testing.T) {
	t.Run("maps_payload_to_metadata", func(t *testing.T) {
		rows := []domain.FragmentRow{{
			SearchType: TypeTable,
			ObjectID:   "42",
			Title:      strPtr("Clients"),
			Subtitle:   strPtr("Table in CRM"),
			Payload:    map[string]any{"table_id": float64(42), "database_name": "CRM"},
		}}

		results := defaultPostprocess(rows)
		require.Len(t, results, 1)
		assert.Equal(t, TypeTable, results[0].Type)
		assert.Equal(t, "42", results[0].ID)
		assert.Equal(t, "Clients", results[0].Title)
		require.NotNil(t, results[0].Subtitle)
		assert.Equal(t, "Table in CRM", *results[0].Subtitle)
		assert.Equal(t, "CRM", results[0].Metadata["database_name"])
	})

	t.Run("title_falls_back_to_object_id", func(t *testing.T) {
		rows := []domain.FragmentRow{
			{SearchType: TypeDatabase, ObjectID: "7"},
			{SearchType: TypeDatabase, ObjectID: "8", Title: strPtr("")},
		}

		results := defaultPostprocess(rows)
		require.Len(t, results, 2)
		assert.Equal(t, "7", results[0].Title)
		assert.Equal(t, "8", results[1].Title)
	})

	t.Run("extracts_timestamps_and_description", func(t *testing.T) {
		rows := []domain.FragmentRow{{
			SearchType: TypeField,
			ObjectID:   "3",
			Title:      strPtr("Notes"),
			Payload: map[string]any{
				"description": "free text",
				"created_on":  "2026-01-02T03:04:05Z",
				"updated_on":  "2026-01-03T03:04:05Z",
			},
		}}

		results := defaultPostprocess(rows)
		require.Len(t, results, 1)
		require.NotNil(t, results[0].Description)
		assert.Equal(t, "free text", *results[0].Description)
		require.NotNil(t, results[0].CreatedOn)
		assert.Equal(t, "2026-01-02T03:04:05Z", *results[0].CreatedOn)
		require.NotNil(t, results[0].UpdatedOn)
		assert.Equal(t, "2026-01-03T03:04:05Z", *results[0].UpdatedOn)
	})
}

func TestPayloadInt64(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   int64
		wantOK bool
	}{
		{"float64", float64(42), 42, true},
		{"int64", int64(7), 7, true},
		{"numeric_string", "19", 19, true},
		{"garbage_string", "nope", 0, false},
		{"missing", nil, 0, false},
		{"bool", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := map[string]any{}
			if tt.value != nil {
				p["k"] = tt.value
			}
			got, ok := payloadInt64(p, "k")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPayloadString(t *testing.T) {
	p := map[string]any{"s": "hello", "empty": "", "n": float64(1)}

	v, ok := payloadString(p, "s")
	assert.True(t, ok)
	assert.Equal(t, "hello", v)

	_, ok = payloadString(p, "empty")
	assert.False(t, ok)

	_, ok = payloadString(p, "n")
	assert.False(t, ok)

	_, ok = payloadString(p, "missing")
	assert.False(t, ok)
}
