package extract

import (
	"indexflow/config"
	"indexflow/internal/model"
	"indexflow/logger"
)

// Extractor turns a raw provider payload into typed observations.
// Malformed individual records are dropped silently; only a payload the
// strategy cannot work with at all yields an error.
type Extractor interface {
	Extract(raw []byte) ([]model.Observation, error)
}

// ForStrategy returns the extractor for the configured deployment strategy.
// The selection happens once at construction, not per call.
func ForStrategy(strategy string) Extractor {
	switch strategy {
	case config.StrategyChart:
		return NewChart()
	case config.StrategyScan:
		return NewScan()
	default:
		return NewAuto()
	}
}

// autoExtractor prefers the structured chart decoder and defers to the
// marker scanner only when structural decoding fails.
type autoExtractor struct {
	chart Extractor
	scan  Extractor
	log   *logger.Log
}

func NewAuto() Extractor {
	return &autoExtractor{chart: NewChart(), scan: NewScan(), log: logger.GetLogger()}
}

func (a *autoExtractor) Extract(raw []byte) ([]model.Observation, error) {
	obs, err := a.chart.Extract(raw)
	if err == nil {
		return obs, nil
	}
	a.log.WithComponent("extractor").WithError(err).Warn("structured decode failed, falling back to marker scan")
	return a.scan.Extract(raw)
}
