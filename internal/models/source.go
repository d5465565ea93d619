package models

// Source origins. Sources seeded from the subscription config file cannot be
// deleted or renamed, only enabled/disabled; custom sources are fully mutable.
const (
	SourceFromConfig = "config"
	SourceFromCustom = "custom"
)

// Source represents one upstream content provider (video catalog or live
// channel list). Key is the stable identifier and is immutable once created.
type Source struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	API       string `json:"api"`
	Detail    string `json:"detail,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Disabled  bool   `json:"disabled"`
	From      string `json:"from"`
}

// Category is a curated browse entry on the home page.
// Its key is derived from type and query ("movie_动作" style).
type Category struct {
	Name     string `json:"name,omitempty"`
	Type     string `json:"type"` // "movie" or "tv"
	Query    string `json:"query"`
	Disabled bool   `json:"disabled"`
	From     string `json:"from"`
}

// Key returns the derived identifier used for ordering and batch operations.
func (c Category) Key() string {
	return c.Type + "_" + c.Query
}
