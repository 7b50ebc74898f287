package validate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"indexflow/internal/model"
)

// Validator inspects the raw provider payload before any extraction runs.
// Checks execute in order: access-denial marker first, then, when enabled,
// structural validity of the chart envelope.
type Validator struct {
	denialMarker []byte
	structural   bool
}

func New(denialMarker string, structural bool) *Validator {
	return &Validator{denialMarker: []byte(denialMarker), structural: structural}
}

// Check returns nil for an acceptable payload. Denial responses yield
// model.ErrAccessDenied; structurally invalid payloads yield
// model.ErrMalformedPayload when structural validation is enabled.
func (v *Validator) Check(raw []byte) error {
	if len(v.denialMarker) > 0 && bytes.Contains(raw, v.denialMarker) {
		return fmt.Errorf("%w: response contains marker %q", model.ErrAccessDenied, v.denialMarker)
	}

	if v.structural {
		var resp model.ChartResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return fmt.Errorf("%w: %v", model.ErrMalformedPayload, err)
		}
		if len(resp.Chart.Result) == 0 {
			return fmt.Errorf("%w: chart envelope has no result entries", model.ErrMalformedPayload)
		}
	}

	return nil
}
