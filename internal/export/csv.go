// Package export renders the completed-session log as delimited text.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"punchclock/internal/tracker"

	"github.com/klauspost/compress/zstd"
)

const timeLayout = "2006-01-02 15:04:05"

// Header matches the export format of the original tracker.
var Header = []string{"User", "Task", "Start Time", "End Time", "Duration (mins)"}

// WriteCSV writes all records as CSV with the standard header.
func WriteCSV(w io.Writer, records []tracker.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.DisplayName,
			r.Task,
			r.StartedAt.Format(timeLayout),
			r.EndedAt.Format(timeLayout),
			strconv.FormatFloat(r.DurationMinutes, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVZst writes the CSV zstd-compressed, for archival exports.
func WriteCSVZst(w io.Writer, records []tracker.Record) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if err := WriteCSV(zw, records); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zstd: %w", err)
	}
	return nil
}
