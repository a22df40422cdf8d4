package main

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 bytes"},
		{512, "512 bytes"},
		{1023, "1023 bytes"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
		{1610612736, "1.5 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := formatSize(tt.bytes)
			if got != tt.want {
				t.Errorf("formatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestArchiveRestoreRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"punchclock.db":  "sqlite-data",
		"nats/store.dat": "jetstream",
	})

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	tw := tar.NewWriter(zw)

	count, err := archiveDir(tw, src)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 archived files, got %d", count)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	dst := t.TempDir()
	zr, err := zstd.NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	restored, err := extractDir(tar.NewReader(zr), dst)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if restored != 2 {
		t.Errorf("expected 2 restored files, got %d", restored)
	}

	for name, want := range map[string]string{
		"punchclock.db":  "sqlite-data",
		"nats/store.dat": "jetstream",
	} {
		data, err := os.ReadFile(filepath.Join(dst, name))
		if err != nil {
			t.Fatalf("read restored %s: %v", name, err)
		}
		if string(data) != want {
			t.Errorf("restored %s = %q, want %q", name, data, want)
		}
	}
}

func TestExtractRejectsEscapingPaths(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	tw := tar.NewWriter(zw)

	content := "evil"
	if err := tw.WriteHeader(&tar.Header{
		Name: "../outside.txt",
		Mode: 0o644,
		Size: int64(len(content)),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	zw.Close()

	dst := t.TempDir()
	zr, err := zstd.NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	count, err := extractDir(tar.NewReader(zr), dst)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if count != 0 {
		t.Errorf("expected escaping entry to be skipped, restored %d", count)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dst), "outside.txt")); err == nil {
		t.Error("escaping entry was written outside the target directory")
	}
}
