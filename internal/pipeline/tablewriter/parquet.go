package tablewriter

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"indexflow/config"
	"indexflow/internal/model"
	"indexflow/logger"
)

// ParquetRecord represents the structure of the parquet mirror file.
type ParquetRecord struct {
	Date  string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Open  float64 `parquet:"name=open_price, type=DOUBLE"`
	Close float64 `parquet:"name=close_price, type=DOUBLE"`
	High  float64 `parquet:"name=high, type=DOUBLE"`
	Low   float64 `parquet:"name=low, type=DOUBLE"`
}

// memoryFileWriter implements the ParquetFile interface for in-memory writing
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) { return mfw, nil }
func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error)  { return mfw, nil }

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error)  { return mfw.buffer.Read(b) }
func (mfw *memoryFileWriter) Write(b []byte) (int, error) { return mfw.buffer.Write(b) }
func (mfw *memoryFileWriter) Close() error                { return nil }
func (mfw *memoryFileWriter) Bytes() []byte               { return mfw.buffer.Bytes() }

// ParquetMirror writes a typed copy of the output table next to the CSV for
// downstream analytics. Rows whose price fields do not parse as numbers are
// skipped; the CSV remains the authoritative verbatim artifact.
type ParquetMirror struct {
	path        string
	compression string
	log         *logger.Log
}

func NewParquetMirror(cfg config.ParquetConfig) *ParquetMirror {
	return &ParquetMirror{path: cfg.Path, compression: cfg.Compression, log: logger.GetLogger()}
}

// Write overwrites the parquet artifact with the given records and returns
// the number of rows written.
func (m *ParquetMirror) Write(records []model.FilteredRecord) (int, error) {
	fw := newMemoryFileWriter()

	pw, err := writer.NewParquetWriter(fw, new(ParquetRecord), 1)
	if err != nil {
		return 0, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch m.compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	written := 0
	for _, rec := range records {
		row, ok := toParquetRecord(rec)
		if !ok {
			m.log.WithComponent("parquet_mirror").WithFields(logger.Fields{
				"date": rec.Date,
			}).Debug("skipping row with non-numeric price field")
			continue
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			return 0, fmt.Errorf("failed to write parquet record: %w", err)
		}
		written++
	}

	if err := pw.WriteStop(); err != nil {
		return 0, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	if err := os.WriteFile(m.path, fw.Bytes(), 0644); err != nil {
		return 0, fmt.Errorf("write parquet file %s: %w", m.path, err)
	}

	return written, nil
}

func toParquetRecord(rec model.FilteredRecord) (ParquetRecord, bool) {
	open, err := strconv.ParseFloat(rec.Open, 64)
	if err != nil {
		return ParquetRecord{}, false
	}
	closePrice, err := strconv.ParseFloat(rec.Close, 64)
	if err != nil {
		return ParquetRecord{}, false
	}
	high, err := strconv.ParseFloat(rec.High, 64)
	if err != nil {
		return ParquetRecord{}, false
	}
	low, err := strconv.ParseFloat(rec.Low, 64)
	if err != nil {
		return ParquetRecord{}, false
	}
	return ParquetRecord{Date: rec.Date, Open: open, Close: closePrice, High: high, Low: low}, true
}
