package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	lines, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil || lines != nil {
		t.Fatalf("Read() = %v, %v; want nil, nil", lines, err)
	}
}

func TestParse(t *testing.T) {
	line := `{"level":"warn","ts":"2026-01-02T10:00:00.5Z","logger":"state","caller":"state/store.go:10","msg":"operation poll failed","operation":"op-1","attempt":2}`
	got := Parse(line)

	if got.Level != zapcore.WarnLevel {
		t.Errorf("Level = %v, want warn", got.Level)
	}
	if want := time.Date(2026, 1, 2, 10, 0, 0, 500_000_000, time.UTC); !got.Time.Equal(want) {
		t.Errorf("Time = %v, want %v", got.Time, want)
	}
	if got.Message != "operation poll failed" || got.Logger != "state" {
		t.Errorf("Message/Logger = %q/%q", got.Message, got.Logger)
	}
	if fs := got.FieldString(); fs != "attempt=2 operation=op-1" {
		t.Errorf("FieldString() = %q", fs)
	}
	if !got.Structured() {
		t.Error("Structured() = false, want true")
	}
}

func TestParse_Unstructured(t *testing.T) {
	for _, line := range []string{"panic: boom", "{not json", ""} {
		got := Parse(line)
		if got.Structured() {
			t.Errorf("Parse(%q) is structured", line)
		}
		if got.Raw != line || got.Level != zapcore.InfoLevel {
			t.Errorf("Parse(%q) = %+v", line, got)
		}
	}
}

func TestReadEntries_FiltersByLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "tern.log")
	content := strings.Join([]string{
		`{"level":"debug","ts":"2026-01-02T10:00:00Z","msg":"variables fetched"}`,
		`{"level":"info","ts":"2026-01-02T10:00:01Z","msg":"submitting variable change"}`,
		`goroutine 1 [running]:`,
		``,
		`{"level":"error","ts":"2026-01-02T10:00:02Z","msg":"variable operation failed"}`,
	}, "\n")
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := ReadEntries(logPath, 100, zapcore.InfoLevel)
	if err != nil {
		t.Fatalf("ReadEntries() error = %v", err)
	}
	var got []string
	for _, e := range entries {
		if e.Structured() {
			got = append(got, e.Message)
		} else {
			got = append(got, e.Raw)
		}
	}
	want := []string{"submitting variable change", "goroutine 1 [running]:", "variable operation failed"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadEntries() = %v, want %v", got, want)
	}
}
