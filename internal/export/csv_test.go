package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"punchclock/internal/tracker"

	"github.com/klauspost/compress/zstd"
)

func testRecords(t *testing.T) []tracker.Record {
	t.Helper()
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	r1, err := tracker.NewRecord(1, "Alice", "write, review", start, start.Add(90*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	r2, err := tracker.NewRecord(2, "Bob", "deploy", start.Add(2*time.Hour), start.Add(2*time.Hour+30*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	return []tracker.Record{r1, r2}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testRecords(t)); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}

	if strings.Join(rows[0], ",") != "User,Task,Start Time,End Time,Duration (mins)" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	// Comma in the task value must survive quoting.
	if rows[1][1] != "write, review" {
		t.Errorf("expected quoted task preserved, got %q", rows[1][1])
	}
	if rows[1][2] != "2024-01-01 10:00:00" {
		t.Errorf("unexpected start time: %q", rows[1][2])
	}
	if rows[1][4] != "90.00" {
		t.Errorf("expected duration 90.00, got %q", rows[1][4])
	}
	if rows[2][0] != "Bob" || rows[2][4] != "30.00" {
		t.Errorf("unexpected second row: %v", rows[2])
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected header only, got %d rows", len(rows))
	}
}

func TestWriteCSVZstRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSVZst(&buf, testRecords(t)); err != nil {
		t.Fatalf("write compressed csv: %v", err)
	}

	zr, err := zstd.NewReader(&buf)
	if err != nil {
		t.Fatalf("open zstd reader: %v", err)
	}
	defer zr.Close()

	rows, err := csv.NewReader(zr).ReadAll()
	if err != nil {
		t.Fatalf("parse decompressed output: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("expected header + 2 rows, got %d", len(rows))
	}
}
