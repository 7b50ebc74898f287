package extract

import (
	"errors"
	"testing"

	"indexflow/internal/model"
)

const chartPayload = `{"chart":{"result":[{"timestamp":[1700000000,null,1700000120,1700000180],` +
	`"indicators":{"quote":[{` +
	`"open":[7500.10,7501.0,null,7503.30],` +
	`"close":[7500.50,7501.5,7502.5,null],` +
	`"high":[7501.00,7502.0,7503.0,7504.00],` +
	`"low":[7499.90,7500.9,7501.9,7502.90]}]}}],"error":null}}`

func TestChartExtract(t *testing.T) {
	obs, err := NewChart().Extract([]byte(chartPayload))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// Entry 1 has a null timestamp, entry 2 a null open; both drop.
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d: %+v", len(obs), obs)
	}
	first := obs[0]
	if first.Timestamp != 1700000000 || first.Open != "7500.10" || first.Close != "7500.50" ||
		first.High != "7501.00" || first.Low != "7499.90" {
		t.Errorf("unexpected first observation: %+v", first)
	}

	// Null close is allowed under the structured strategy.
	second := obs[1]
	if second.Timestamp != 1700000180 || second.Open != "7503.30" || second.Close != "" {
		t.Errorf("unexpected second observation: %+v", second)
	}
}

func TestChartExtractPreservesValueText(t *testing.T) {
	payload := `{"chart":{"result":[{"timestamp":[1700000000],` +
		`"indicators":{"quote":[{"open":[7500.1000],"close":[7.5e3],"high":[7501],"low":[7499.9]}]}}]}}`
	obs, err := NewChart().Extract([]byte(payload))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs))
	}
	if obs[0].Open != "7500.1000" || obs[0].Close != "7.5e3" || obs[0].High != "7501" {
		t.Errorf("values must not be reformatted: %+v", obs[0])
	}
}

func TestChartExtractMalformed(t *testing.T) {
	cases := []string{
		`<html>maintenance</html>`,
		`{"chart":{"result":[]}}`,
		`{"chart":{"result":[{"timestamp":[1],"indicators":{"quote":[]}}]}}`,
	}
	for _, payload := range cases {
		if _, err := NewChart().Extract([]byte(payload)); !errors.Is(err, model.ErrMalformedPayload) {
			t.Errorf("payload %q: expected ErrMalformedPayload, got %v", payload, err)
		}
	}
}

const scanPayload = `prefix "timestamp":1700000000 "open":7500.10 "close":7500.50 "high":7501.00 "low":7499.90 ` +
	`middle "timestamp":1700000060 "open":7501.10 "close":7501.50 "high":7502.00 "low":7500.90 tail`

func TestScanExtract(t *testing.T) {
	obs, err := NewScan().Extract([]byte(scanPayload))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d: %+v", len(obs), obs)
	}
	if obs[0].Timestamp != 1700000000 || obs[0].Open != "7500.10" || obs[0].Low != "7499.90" {
		t.Errorf("unexpected first observation: %+v", obs[0])
	}
	if obs[1].Timestamp != 1700000060 || obs[1].Close != "7501.50" || obs[1].High != "7502.00" {
		t.Errorf("unexpected second observation: %+v", obs[1])
	}
}

func TestScanExtractBorrowsFollowingMarkers(t *testing.T) {
	// The second candidate is missing its own "low" marker.
	payload := `"timestamp":1 "open":1.0 "close":1.1 "high":1.2 "low":0.9 ` +
		`"timestamp":2 "open":2.0 "close":2.1 "high":2.2 ` +
		`"timestamp":3 "open":3.0 "close":3.1 "high":3.2 "low":2.9`
	obs, err := NewScan().Extract([]byte(payload))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	// Candidate 2 finds candidate 3's "low" as nearest-following,
	// best-effort behaviour with no collision guarantee, so all three emit.
	if len(obs) != 3 {
		t.Fatalf("expected 3 observations, got %d: %+v", len(obs), obs)
	}
	if obs[1].Timestamp != 2 || obs[1].Open != "2.0" || obs[1].Low != "2.9" {
		t.Errorf("candidate 2 should borrow candidate 3's low marker: %+v", obs[1])
	}
}

func TestScanExtractMissingTrailingMarkers(t *testing.T) {
	// Last candidate has no following "low" anywhere; only it drops.
	payload := `"timestamp":1 "open":1.0 "close":1.1 "high":1.2 "low":0.9 ` +
		`"timestamp":2 "open":2.0 "close":2.1 "high":2.2`
	obs, err := NewScan().Extract([]byte(payload))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("expected 1 observation, got %d: %+v", len(obs), obs)
	}
	if obs[0].Timestamp != 1 {
		t.Errorf("unexpected surviving candidate: %+v", obs[0])
	}
}

func TestScanExtractEmpty(t *testing.T) {
	obs, err := NewScan().Extract([]byte("no markers here"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(obs) != 0 {
		t.Fatalf("expected no observations, got %+v", obs)
	}
}

func TestAutoPrefersChart(t *testing.T) {
	obs, err := NewAuto().Extract([]byte(chartPayload))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	// Chart strategy semantics: the null-close entry survives.
	if len(obs) != 2 || obs[1].Close != "" {
		t.Fatalf("auto policy did not use chart strategy: %+v", obs)
	}
}

func TestAutoFallsBackToScan(t *testing.T) {
	obs, err := NewAuto().Extract([]byte(scanPayload))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("auto policy did not fall back to scan: %+v", obs)
	}
}

func TestForStrategy(t *testing.T) {
	if _, ok := ForStrategy("chart").(*chartExtractor); !ok {
		t.Error("chart strategy should build chartExtractor")
	}
	if _, ok := ForStrategy("scan").(*scanExtractor); !ok {
		t.Error("scan strategy should build scanExtractor")
	}
	if _, ok := ForStrategy("auto").(*autoExtractor); !ok {
		t.Error("auto strategy should build autoExtractor")
	}
}
