package models

// Validation statuses for one source probe. A run starts with every source
// at StatusChecking and ends with each source at one of the other three.
const (
	StatusChecking  = "checking"
	StatusValid     = "valid"
	StatusNoResults = "no_results"
	StatusInvalid   = "invalid"
)

// ValidationResult is the transient per-source outcome of a validation run.
// Results are scoped to one run and rebuilt from scratch on the next.
type ValidationResult struct {
	SourceKey string `json:"source_key"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}
