package filter

import (
	"fmt"
	"time"

	"indexflow/config"
	"indexflow/internal/model"
)

const (
	dateTimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"
)

// SessionFilter keeps observations inside the trading-session window.
// It converts the epoch timestamp to local wall-clock time and compares the
// HHMM value against the cutoff; the comparator is inclusive or exclusive
// depending on the deployment variant. The filter is pure: observations are
// never mutated, surviving ones are projected to FilteredRecord.
type SessionFilter struct {
	location   *time.Location
	cutoffHHMM int
	inclusive  bool
	unitMillis bool
	dateOnly   bool
}

func NewSession(cfg config.SessionConfig) (*SessionFilter, error) {
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("load session location: %w", err)
	}
	cutoff, err := cfg.CutoffHHMM()
	if err != nil {
		return nil, err
	}
	return &SessionFilter{
		location:   loc,
		cutoffHHMM: cutoff,
		inclusive:  cfg.Inclusive,
		unitMillis: cfg.TimestampUnit == "ms",
		dateOnly:   cfg.DateOnly,
	}, nil
}

// Apply returns the records surviving the session-window predicate, in
// input order.
func (f *SessionFilter) Apply(observations []model.Observation) []model.FilteredRecord {
	records := make([]model.FilteredRecord, 0, len(observations))
	for _, obs := range observations {
		local := f.localTime(obs.Timestamp)
		if !f.inSession(local) {
			continue
		}
		layout := dateTimeLayout
		if f.dateOnly {
			layout = dateLayout
		}
		records = append(records, model.FilteredRecord{
			Date:  local.Format(layout),
			Open:  obs.Open,
			Close: obs.Close,
			High:  obs.High,
			Low:   obs.Low,
		})
	}
	return records
}

func (f *SessionFilter) localTime(epoch int64) time.Time {
	if f.unitMillis {
		return time.UnixMilli(epoch).In(f.location)
	}
	return time.Unix(epoch, 0).In(f.location)
}

func (f *SessionFilter) inSession(t time.Time) bool {
	hhmm := t.Hour()*100 + t.Minute()
	if f.inclusive {
		return hhmm <= f.cutoffHHMM
	}
	return hhmm < f.cutoffHHMM
}
