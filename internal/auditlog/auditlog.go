// Package auditlog renders a human-readable record of each validation
// outcome (grounded on the prompt package's mustache compiler) and
// batches those records into Parquet files for offline analysis
// (grounded on the observability package's Parquet writer), all driven
// off the validation.Observer hook so the audit trail never sits on
// the hot validation path.
package auditlog

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/cbroglie/mustache"
	"github.com/parquet-go/parquet-go"

	"github.com/readium/r2-lcp-go/internal/validation"
)

const messageTemplate = `license {{license_id}} -> {{outcome}}{{#detail}} ({{detail}}){{/detail}} at {{when}}`

// Record is one validation outcome, in the shape Flush writes to Parquet.
type Record struct {
	LicenseID string    `parquet:"license_id"`
	Outcome   string    `parquet:"outcome"`
	Detail    string    `parquet:"detail,optional"`
	Timestamp time.Time `parquet:"timestamp"`
}

func (r Record) message() (string, error) {
	return mustache.Render(messageTemplate, map[string]any{
		"license_id": r.LicenseID,
		"outcome":    r.Outcome,
		"detail":     r.Detail,
		"when":       r.Timestamp.Format(time.RFC3339),
	})
}

// Log accumulates Records in memory and can flush them to Parquet on
// demand (e.g. on a timer, or when the buffer reaches a size limit).
type Log struct {
	mu      sync.Mutex
	records []Record
	onLine  func(string)
}

// New builds an empty Log. onLine, if non-nil, receives each
// rendered message as it is appended (e.g. to a structured logger).
func New(onLine func(string)) *Log {
	return &Log{onLine: onLine}
}

// Observer returns a validation.Observer that appends one Record per
// terminal notification.
func (l *Log) Observer(licenseID string) validation.Observer {
	return func(docs *validation.ValidatedDocuments, err error) {
		l.append(l.recordFor(licenseID, docs, err))
	}
}

func (l *Log) recordFor(licenseID string, docs *validation.ValidatedDocuments, err error) Record {
	r := Record{LicenseID: licenseID, Timestamp: time.Now()}
	switch {
	case err != nil:
		r.Outcome = "failed"
		r.Detail = err.Error()
	case docs == nil:
		r.Outcome = "cancelled"
	case docs.Context.IsUsable():
		r.Outcome = "valid"
	default:
		r.Outcome = "degraded"
		r.Detail = docs.Context.StatusErr().Error()
	}
	return r
}

func (l *Log) append(r Record) {
	l.mu.Lock()
	l.records = append(l.records, r)
	l.mu.Unlock()

	if l.onLine != nil {
		if msg, err := r.message(); err == nil {
			l.onLine(msg)
		}
	}
}

// Flush returns every buffered Record encoded as a Parquet file and
// clears the buffer. It is a no-op, returning (nil, nil), if nothing
// has been recorded since the last flush.
func (l *Log) Flush() ([]byte, error) {
	l.mu.Lock()
	records := l.records
	l.records = nil
	l.mu.Unlock()

	if len(records) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[Record](&buf)
	if _, err := writer.Write(records); err != nil {
		return nil, fmt.Errorf("write audit records: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close audit writer: %w", err)
	}
	return buf.Bytes(), nil
}
