package domain

// Search pagination bounds enforced at the API boundary.
const (
	DefaultSearchLimit   = 20
	MaxSearchLimit       = 100
	MaxSearchQueryLength = 100
)

// SearchContext carries one search request through the federation engine.
// Limit here is the raw page size; the engine itself probes one row past it
// to compute the has-more flag.
type SearchContext struct {
	Query  string
	Limit  int
	Offset int
}

// SearchResult is the output unit of workspace search. Constructed fresh per
// query, never persisted.
type SearchResult struct {
	Type        string         `json:"type"`
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Subtitle    *string        `json:"subtitle,omitempty"`
	Description *string        `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedOn   *string        `json:"created_on,omitempty"`
	UpdatedOn   *string        `json:"updated_on,omitempty"`
}

// FragmentRow is the normalized eight-column shape every searchable item
// type projects into so heterogeneous sources can be unioned. The column
// order and types are fixed; see FragmentColumns.
type FragmentRow struct {
	SearchType string
	ObjectID   string
	SortKey    int64
	Rank       *float64 // nil for non-full-text types
	Priority   int
	Title      *string
	Subtitle   *string
	Payload    map[string]any
}

// FragmentColumns is the canonical column list of every union fragment, in
// order. Every fragment-producing SQL statement must select exactly these.
var FragmentColumns = []string{
	"search_type",
	"object_id",
	"sort_key",
	"rank",
	"priority",
	"title",
	"subtitle",
	"payload",
}
