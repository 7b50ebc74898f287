// Package journal maintains the append-only activity log of the history
// variant: one timestamped line per pipeline stage transition.
package journal

import (
	"fmt"
	"io"
	"sync"
	"time"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"indexflow/config"
)

const stampLayout = "2006-01-02 15:04:05"

// Journal appends "[YYYY-MM-DD HH:MM:SS] message" lines to a persistent log
// file. The file is never truncated between runs; lumberjack ages out old
// segments instead. A disabled journal swallows events.
type Journal struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// New builds a Journal from configuration. When disabled it records nothing.
func New(cfg config.JournalConfig) *Journal {
	if !cfg.Enabled {
		return &Journal{}
	}
	return &Journal{
		w: &lumberjack.Logger{
			Filename: cfg.Path,
			MaxAge:   cfg.MaxAge,
			MaxSize:  100,
		},
		now: time.Now,
	}
}

// NewWithWriter builds an enabled Journal over an arbitrary writer.
func NewWithWriter(w io.Writer) *Journal {
	return &Journal{w: w, now: time.Now}
}

// Event appends one formatted line. Write failures are ignored: the journal
// is an observability aid and must never fail a run.
func (j *Journal) Event(format string, args ...interface{}) {
	if j.w == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	fmt.Fprintf(j.w, "[%s] %s\n", j.now().Format(stampLayout), fmt.Sprintf(format, args...))
}

// Close releases the underlying file when the journal owns one.
func (j *Journal) Close() error {
	if c, ok := j.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
