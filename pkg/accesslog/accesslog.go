// Package accesslog appends one JSON record per tool-call attempt to a
// local file. Logging is best effort: a write failure is reported to the
// process log and never propagated to the caller.
package accesslog

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// maxResponseSummary bounds the stored response excerpt.
const maxResponseSummary = 2048

// Record is one call attempt, success or failure.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	Endpoint   string    `json:"endpoint"`
	Payload    any       `json:"payload,omitempty"`
	Response   string    `json:"response,omitempty"`
	ReturnCode int       `json:"return_code"`
	DurationMS int64     `json:"duration_ms"`
}

// Writer hands records to the log sink.
type Writer interface {
	Write(rec Record)
}

// Nop discards every record; used when access logging is disabled.
type Nop struct{}

func (Nop) Write(Record) {}

// FileWriter appends JSON lines to a single file.
type FileWriter struct {
	mu     sync.Mutex
	f      *os.File
	logger *zap.Logger
}

func NewFileWriter(path string, logger *zap.Logger) (*FileWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileWriter{f: f, logger: logger}, nil
}

func (w *FileWriter) Write(rec Record) {
	if len(rec.Response) > maxResponseSummary {
		rec.Response = rec.Response[:maxResponseSummary]
	}
	data, err := json.Marshal(rec)
	if err != nil {
		w.logger.Warn("access record not serializable", zap.Error(err))
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.f.Write(append(data, '\n')); err != nil {
		w.logger.Warn("access log write failed", zap.Error(err))
	}
}

func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}
