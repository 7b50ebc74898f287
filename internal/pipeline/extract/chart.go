package extract

import (
	"encoding/json"
	"fmt"

	"indexflow/internal/model"
)

// chartExtractor decodes the provider's chart envelope and projects entries
// whose timestamp and open price are both non-null. Close, high and low may
// be null there; such entries are still emitted with the fields left empty.
type chartExtractor struct{}

func NewChart() Extractor {
	return &chartExtractor{}
}

func (e *chartExtractor) Extract(raw []byte) ([]model.Observation, error) {
	var resp model.ChartResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedPayload, err)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: chart envelope has no result entries", model.ErrMalformedPayload)
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: chart envelope has no quote block", model.ErrMalformedPayload)
	}
	quote := result.Indicators.Quote[0]

	observations := make([]model.Observation, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// JSON null leaves the json.Number empty.
		if ts == "" {
			continue
		}
		open := numberAt(quote.Open, i)
		if open == "" {
			continue
		}
		epoch, err := ts.Int64()
		if err != nil {
			continue
		}
		observations = append(observations, model.Observation{
			Timestamp: epoch,
			Open:      open,
			Close:     numberAt(quote.Close, i),
			High:      numberAt(quote.High, i),
			Low:       numberAt(quote.Low, i),
		})
	}

	return observations, nil
}

func numberAt(xs []json.Number, i int) string {
	if i < len(xs) {
		return xs[i].String()
	}
	return ""
}
