// Package validate probes every enabled source with a search keyword and
// streams per-source outcomes as they settle. The orchestrator is the
// server half; the consumer is the client half that folds the stream into
// a per-source status map.
package validate

// Event types, in emission order: one start, one terminal event per
// source in completion order, then one complete. A stream that closes
// without complete means the run hit the server-side ceiling.
const (
	EventStart        = "start"
	EventSourceResult = "source_result"
	EventSourceError  = "source_error"
	EventComplete     = "complete"
)

// Event is one streamed message, encoded as a single JSON object per
// SSE data line.
type Event struct {
	Type    string `json:"type"`
	Source  string `json:"source,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Total   int    `json:"total,omitempty"`
}
