package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"indexflow/config"
	"indexflow/internal/model"
)

// chartPayload builds a provider response with observations at the given
// Paris wall-clock times on a fixed trading day.
func chartPayload(t *testing.T, hhmm ...[2]int) string {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	var ts, open, closeP, high, low []string
	for i, hm := range hhmm {
		epoch := time.Date(2023, 11, 14, hm[0], hm[1], 0, 0, loc).Unix()
		ts = append(ts, fmt.Sprintf("%d", epoch))
		open = append(open, fmt.Sprintf("%d.10", 7500+i))
		closeP = append(closeP, fmt.Sprintf("%d.50", 7500+i))
		high = append(high, fmt.Sprintf("%d.90", 7500+i))
		low = append(low, fmt.Sprintf("%d.00", 7499+i))
	}
	return fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{"open":[%s],"close":[%s],"high":[%s],"low":[%s]}]}}],"error":null}}`,
		strings.Join(ts, ","), strings.Join(open, ","), strings.Join(closeP, ","),
		strings.Join(high, ","), strings.Join(low, ","))
}

func testConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Indexflow: config.IndexflowConfig{Name: "IndexFlow", Version: "test"},
		Source: config.SourceConfig{
			URL:               url,
			UserAgent:         "Mozilla/5.0 (test)",
			Timeout:           2 * time.Second,
			DenialMarker:      "Forbidden",
			ValidateStructure: true,
		},
		Extraction: config.ExtractionConfig{Strategy: config.StrategyAuto},
		Session: config.SessionConfig{
			Location:      "Europe/Paris",
			Cutoff:        "17:30",
			Inclusive:     true,
			TimestampUnit: "s",
		},
		Output: config.OutputConfig{
			RawPath:   filepath.Join(dir, "data_raw.json"),
			TablePath: filepath.Join(dir, "data_output.csv"),
		},
		Journal: config.JournalConfig{
			Enabled: true,
			Path:    filepath.Join(dir, "indexflow_log.txt"),
		},
	}
}

func newTestRunner(t *testing.T, cfg *config.Config) *Runner {
	t.Helper()
	r, err := NewRunner(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRunHappyPath(t *testing.T) {
	payload := chartPayload(t, [2]int{9, 0}, [2]int{17, 29}, [2]int{17, 31})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	r := newTestRunner(t, cfg)

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Extracted != 3 || summary.Survived != 2 || summary.RowsWritten != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	// Raw artifact is a byte-for-byte copy of the response body.
	raw, err := os.ReadFile(cfg.Output.RawPath)
	if err != nil {
		t.Fatalf("read raw artifact: %v", err)
	}
	if string(raw) != payload {
		t.Error("raw artifact does not match response body")
	}

	table, err := os.ReadFile(cfg.Output.TablePath)
	if err != nil {
		t.Fatalf("read output table: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(table)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines:\n%s", len(lines), table)
	}
	if lines[0] != "Date,OpenPrice,ClosePrice,High,Low" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[1] != "2023-11-14 09:00:00,7500.10,7500.50,7500.90,7499.00" {
		t.Errorf("unexpected first row: %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "2023-11-14 17:29:00,") {
		t.Errorf("unexpected second row: %s", lines[2])
	}

	jrnl, err := os.ReadFile(cfg.Journal.Path)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if !strings.Contains(string(jrnl), "finished successfully") {
		t.Errorf("journal missing success line:\n%s", jrnl)
	}
}

func TestRunIdempotent(t *testing.T) {
	payload := chartPayload(t, [2]int{9, 0}, [2]int{10, 0})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	r := newTestRunner(t, cfg)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := os.ReadFile(cfg.Output.TablePath)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, err := os.ReadFile(cfg.Output.TablePath)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}

	if string(first) != string(second) {
		t.Error("byte-identical input must produce byte-identical table content")
	}
}

func TestRunAccessDenied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<html>403 Forbidden</html>"))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	r := newTestRunner(t, cfg)

	_, err := r.Run(context.Background())
	if !errors.Is(err, model.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}

	// The denial body is still persisted for inspection.
	raw, err := os.ReadFile(cfg.Output.RawPath)
	if err != nil {
		t.Fatalf("raw artifact must exist after denial: %v", err)
	}
	if !strings.Contains(string(raw), "Forbidden") {
		t.Errorf("raw artifact should carry the denial body: %s", raw)
	}

	// The output table was never created.
	if _, err := os.Stat(cfg.Output.TablePath); !os.IsNotExist(err) {
		t.Errorf("output table must not be created on denial, stat err = %v", err)
	}
}

func TestRunMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("<html>maintenance window</html>"))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	r := newTestRunner(t, cfg)

	_, err := r.Run(context.Background())
	if !errors.Is(err, model.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestRunZeroSurvivors(t *testing.T) {
	// All observations fall after the session cutoff.
	payload := chartPayload(t, [2]int{17, 45}, [2]int{18, 0})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	r := newTestRunner(t, cfg)

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("zero-row run must succeed: %v", err)
	}
	if summary.Extracted != 2 || summary.RowsWritten != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	table, err := os.ReadFile(cfg.Output.TablePath)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	if string(table) != "Date,OpenPrice,ClosePrice,High,Low\n" {
		t.Errorf("expected header-only table, got:\n%s", table)
	}
}

func TestRunScanFallback(t *testing.T) {
	// Not structured-parseable, but carrying a full marker set: the auto
	// policy must fall back to scanning. Structural validation is disabled
	// in this variant.
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	epoch := time.Date(2023, 11, 14, 9, 0, 0, 0, loc).Unix()
	payload := fmt.Sprintf(`quote stream: "timestamp":%d "open":7500.10 "close":7500.50 "high":7501.00 "low":7499.90 trailing`, epoch)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	cfg.Source.ValidateStructure = false
	r := newTestRunner(t, cfg)

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Extracted != 1 || summary.RowsWritten != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	table, err := os.ReadFile(cfg.Output.TablePath)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	if !strings.Contains(string(table), "2023-11-14 09:00:00,7500.10,7500.50,7501.00,7499.90") {
		t.Errorf("unexpected table content:\n%s", table)
	}
}

func TestRunTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {}))
	server.Close()

	cfg := testConfig(t, server.URL)
	r := newTestRunner(t, cfg)

	_, err := r.Run(context.Background())
	if !errors.Is(err, model.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}

	// Nothing was written.
	if _, err := os.Stat(cfg.Output.RawPath); !os.IsNotExist(err) {
		t.Errorf("raw artifact must not exist after transport failure, stat err = %v", err)
	}
}
