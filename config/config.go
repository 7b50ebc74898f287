package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Indexflow  IndexflowConfig  `yaml:"indexflow"`
	Source     SourceConfig     `yaml:"source"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Session    SessionConfig    `yaml:"session"`
	Output     OutputConfig     `yaml:"output"`
	Journal    JournalConfig    `yaml:"journal"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type IndexflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type SourceConfig struct {
	URL               string          `yaml:"url"`
	UserAgent         string          `yaml:"user_agent"`
	Timeout           time.Duration   `yaml:"timeout"`
	DenialMarker      string          `yaml:"denial_marker"`
	ValidateStructure bool            `yaml:"validate_structure"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

// Extraction strategy identifiers. StrategyAuto prefers the structured
// chart decoder and falls back to marker scanning when the payload does
// not parse.
const (
	StrategyChart = "chart"
	StrategyScan  = "scan"
	StrategyAuto  = "auto"
)

type ExtractionConfig struct {
	Strategy string `yaml:"strategy"`
}

type SessionConfig struct {
	Location      string `yaml:"location"`
	Cutoff        string `yaml:"cutoff"`
	Inclusive     bool   `yaml:"inclusive"`
	TimestampUnit string `yaml:"timestamp_unit"`
	DateOnly      bool   `yaml:"date_only"`
}

// CutoffHHMM parses the configured "HH:MM" session cutoff into the
// 4-digit integer form used by the filter predicate (17:30 -> 1730).
func (s SessionConfig) CutoffHHMM() (int, error) {
	parts := strings.SplitN(s.Cutoff, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid session cutoff %q, expected HH:MM", s.Cutoff)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid session cutoff hour %q", parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid session cutoff minute %q", parts[1])
	}
	return hour*100 + minute, nil
}

type OutputConfig struct {
	RawPath   string        `yaml:"raw_path"`
	TablePath string        `yaml:"table_path"`
	Parquet   ParquetConfig `yaml:"parquet"`
}

type ParquetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	MaxAge  int    `yaml:"max_age"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Source: SourceConfig{
			Timeout:      15 * time.Second,
			DenialMarker: "Forbidden",
		},
		Extraction: ExtractionConfig{Strategy: StrategyAuto},
		Session: SessionConfig{
			Location:      "Europe/Paris",
			Cutoff:        "17:30",
			Inclusive:     true,
			TimestampUnit: "s",
		},
		Logging: LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Indexflow.Name == "" {
		return fmt.Errorf("indexflow.name is required")
	}

	if cfg.Indexflow.Version == "" {
		return fmt.Errorf("indexflow.version is required")
	}

	if cfg.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}

	if cfg.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be greater than 0")
	}

	switch cfg.Extraction.Strategy {
	case StrategyChart, StrategyScan, StrategyAuto:
	default:
		return fmt.Errorf("extraction.strategy '%s' is invalid, must be one of chart, scan, auto", cfg.Extraction.Strategy)
	}

	switch cfg.Session.TimestampUnit {
	case "s", "ms":
	default:
		return fmt.Errorf("session.timestamp_unit '%s' is invalid, must be 's' or 'ms'", cfg.Session.TimestampUnit)
	}

	if _, err := cfg.Session.CutoffHHMM(); err != nil {
		return fmt.Errorf("session.cutoff: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Session.Location); err != nil {
		return fmt.Errorf("session.location '%s' is invalid: %w", cfg.Session.Location, err)
	}

	if cfg.Output.RawPath == "" {
		return fmt.Errorf("output.raw_path is required")
	}

	if cfg.Output.TablePath == "" {
		return fmt.Errorf("output.table_path is required")
	}

	if cfg.Output.Parquet.Enabled && cfg.Output.Parquet.Path == "" {
		return fmt.Errorf("output.parquet.path is required when parquet output is enabled")
	}

	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
