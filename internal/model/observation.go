// internal/model/observation.go
// @tag models, data_structure, core
package model

// Observation is one raw time-stamped price quadruple extracted from the
// provider payload, before session filtering. Price fields carry the source
// text verbatim so downstream serialization never reformats values. Open is
// always present; Close, High and Low may be empty when the structured
// decoder saw nulls for them.
type Observation struct {
	Timestamp int64
	Open      string
	Close     string
	High      string
	Low       string
}

// FilteredRecord is an Observation that passed the session-window predicate.
// The epoch timestamp has been replaced by a formatted local date-time
// string; price fields are carried through untouched.
type FilteredRecord struct {
	Date  string
	Open  string
	Close string
	High  string
	Low   string
}
