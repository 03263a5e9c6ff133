package auditlog

import (
	"errors"
	"strings"
	"testing"

	"github.com/readium/r2-lcp-go/internal/validation"
)

func TestLog_ObserverAppendsAndRendersLine(t *testing.T) {
	var lines []string
	l := New(func(line string) { lines = append(lines, line) })

	l.Observer("lic-1")(nil, errors.New("boom"))

	if len(lines) != 1 {
		t.Fatalf("expected one rendered line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "lic-1") || !strings.Contains(lines[0], "failed") || !strings.Contains(lines[0], "boom") {
		t.Errorf("unexpected rendered line: %q", lines[0])
	}
}

func TestLog_FlushEmptyIsNoOp(t *testing.T) {
	l := New(nil)
	data, err := l.Flush()
	if err != nil || data != nil {
		t.Fatalf("Flush() = (%v, %v), want (nil, nil)", data, err)
	}
}

func TestLog_FlushProducesParquetBytes(t *testing.T) {
	l := New(nil)
	l.Observer("lic-1")(&validation.ValidatedDocuments{}, nil)

	data, err := l.Flush()
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty parquet bytes")
	}
}
