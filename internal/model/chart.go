package model

import "encoding/json"

//
// Provider chart envelope (REST response).
//
// Numeric values are decoded as json.Number so the source text survives
// verbatim into the output table. A JSON null leaves the json.Number at its
// zero value (""), which is how absent fields are detected.
//

type ChartResponse struct {
	Chart struct {
		Result []ChartResult   `json:"result"`
		Error  json.RawMessage `json:"error"`
	} `json:"chart"`
}

type ChartResult struct {
	Timestamp  []json.Number `json:"timestamp"`
	Indicators struct {
		Quote []ChartQuote `json:"quote"`
	} `json:"indicators"`
}

type ChartQuote struct {
	Open  []json.Number `json:"open"`
	Close []json.Number `json:"close"`
	High  []json.Number `json:"high"`
	Low   []json.Number `json:"low"`
}
