package mothership

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tickagent/internal/tick"
)

// Response is what the mothership answered. Status is the observed HTTP
// status; Body is the decoded JSON object, or a synthesized error object when
// the reply was not one.
type Response struct {
	Status int
	Body   map[string]any
}

func (r Response) OK() bool { return r.Status == http.StatusOK }

// Positions extracts the authoritative holdings list from a response body.
// ok is false when the body has no Positions key.
func (r Response) Positions() (positions []tick.Position, ok bool, err error) {
	raw, ok := r.Body["Positions"]
	if !ok {
		return nil, false, nil
	}
	if raw == nil {
		return nil, true, fmt.Errorf("mothership Positions is null")
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, true, fmt.Errorf("re-encode mothership Positions: %w", err)
	}
	if err := json.Unmarshal(b, &positions); err != nil {
		return nil, true, fmt.Errorf("decode mothership Positions: %w", err)
	}
	if positions == nil {
		positions = []tick.Position{}
	}
	return positions, true, nil
}
