package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/naseaoi/IceTV/internal/models"
)

// probeResponse is the provider search payload. Providers use the common
// videolist API shape; only the result list matters here.
type probeResponse struct {
	List []json.RawMessage `json:"list"`
}

// Outcome is the classified result of one probe.
type Outcome struct {
	Status  string
	Message string
}

// probe issues one search request against the source and classifies the
// result: valid (at least one hit), no_results (clean empty answer), or
// invalid (transport error, timeout, or non-2xx status).
func probe(ctx context.Context, client *http.Client, src models.Source, keyword, userAgent string, timeout time.Duration) Outcome {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u, err := url.Parse(src.API)
	if err != nil {
		return Outcome{Status: models.StatusInvalid, Message: fmt.Sprintf("bad api url: %v", err)}
	}
	q := u.Query()
	q.Set("ac", "videolist")
	q.Set("wd", keyword)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Outcome{Status: models.StatusInvalid, Message: err.Error()}
	}
	if src.UserAgent != "" {
		userAgent = src.UserAgent
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Outcome{Status: models.StatusInvalid, Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{Status: models.StatusInvalid, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	var payload probeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Outcome{Status: models.StatusInvalid, Message: fmt.Sprintf("bad response: %v", err)}
	}
	if len(payload.List) == 0 {
		return Outcome{Status: models.StatusNoResults, Message: "search returned no results"}
	}
	return Outcome{Status: models.StatusValid, Message: fmt.Sprintf("%d results", len(payload.List))}
}
