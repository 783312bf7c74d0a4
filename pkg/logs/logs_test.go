package logs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/vpncoord/pkg/types"
)

func writeRawLines(t *testing.T, dir, containerID string, lines []rawRecord) {
	t.Helper()
	var data []byte
	for _, l := range lines {
		b, err := json.Marshal(l)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		data = append(data, b...)
		data = append(data, '\n')
	}
	path := filepath.Join(dir, containerID+".log")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
}

func TestParseLineLevelInference(t *testing.T) {
	entry, err := ParseLine("c1", []byte(`{"time":"2026-01-01T00:00:00Z","stream":"stderr","log":"boom"}`))
	if err != nil {
		t.Fatalf("ParseLine() error = %v", err)
	}
	if entry.Level != "error" {
		t.Errorf("Level = %v, want error", entry.Level)
	}

	entry, err = ParseLine("c1", []byte(`{"time":"2026-01-01T00:00:00Z","stream":"stdout","log":"a warning happened"}`))
	if err != nil {
		t.Fatalf("ParseLine() error = %v", err)
	}
	if entry.Level != "warn" {
		t.Errorf("Level = %v, want warn", entry.Level)
	}
}

func TestReadEntriesFiltersByContainerAndLevel(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	writeRawLines(t, dir, "web", []rawRecord{
		{Time: base, Stream: "stdout", Log: "starting up"},
		{Time: base.Add(time.Minute), Stream: "stderr", Log: "failed to bind"},
	})

	c := NewCollector(dir)
	entries, err := c.ReadEntries("web", Filter{})
	if err != nil {
		t.Fatalf("ReadEntries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	errOnly, err := c.ReadEntries("web", Filter{Levels: []types.LogLevel{types.LogLevelError}})
	if err != nil {
		t.Fatalf("ReadEntries(levels) error = %v", err)
	}
	if len(errOnly) != 1 || errOnly[0].Message != "failed to bind" {
		t.Fatalf("errOnly = %v, want only the stderr entry", errOnly)
	}

	other, err := c.ReadEntries("other", Filter{})
	if err != nil {
		t.Fatalf("ReadEntries(other) error = %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("len(other) = %d, want 0", len(other))
	}
}

func TestReadEntriesMissingFileReturnsEmpty(t *testing.T) {
	c := NewCollector(t.TempDir())
	entries, err := c.ReadEntries("nope", Filter{})
	if err != nil {
		t.Fatalf("ReadEntries() error = %v", err)
	}
	if entries != nil {
		t.Fatalf("entries = %v, want nil", entries)
	}
}

func TestReadEntriesTailSeeksNearEnd(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var lines []rawRecord
	for i := 0; i < 50; i++ {
		lines = append(lines, rawRecord{
			Time:   base.Add(time.Duration(i) * time.Second),
			Stream: "stdout",
			Log:    "line",
		})
	}
	writeRawLines(t, dir, "web", lines)

	c := NewCollector(dir)
	all, err := c.ReadEntries("web", Filter{})
	if err != nil {
		t.Fatalf("ReadEntries() error = %v", err)
	}

	tailed, err := c.ReadEntries("web", Filter{Tail: 5})
	if err != nil {
		t.Fatalf("ReadEntries(tail) error = %v", err)
	}
	if len(tailed) == 0 || len(tailed) > len(all) {
		t.Fatalf("len(tailed) = %d, want between 1 and %d", len(tailed), len(all))
	}
	if tailed[len(tailed)-1].Message != all[len(all)-1].Message {
		t.Fatalf("tail did not include the last entry")
	}
}

func TestFollowStreamsAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "web.log")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	c := NewCollector(dir)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ch, err := c.Follow(ctx, "web", Filter{})
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}

	rec := rawRecord{Time: time.Now().UTC(), Stream: "stdout", Log: "hello"}
	b, _ := json.Marshal(rec)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	select {
	case entry, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before delivering entry")
		}
		if entry.Message != "hello" {
			t.Errorf("Message = %q, want hello", entry.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for followed entry")
	}
}

func TestArchiveSplitsOldEntries(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	writeRawLines(t, dir, "web", []rawRecord{
		{Time: base, Stream: "stdout", Log: "old"},
		{Time: base.AddDate(0, 0, 10), Stream: "stdout", Log: "new"},
	})

	c := NewCollector(dir)
	cutoff := base.AddDate(0, 0, 5)
	if err := c.Archive("web", cutoff, false); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	remaining, err := c.ReadEntries("web", Filter{})
	if err != nil {
		t.Fatalf("ReadEntries() error = %v", err)
	}
	if len(remaining) != 1 || remaining[0].Message != "new" {
		t.Fatalf("remaining = %v, want only 'new'", remaining)
	}

	archivePath := c.archivePath("web", cutoff, false)
	if _, err := os.Stat(archivePath); err != nil {
		t.Fatalf("archive file not written: %v", err)
	}
}

func TestSearchMatchesMessageSubstring(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	writeRawLines(t, dir, "web", []rawRecord{
		{Time: base, Stream: "stdout", Log: "connection accepted"},
		{Time: base.Add(time.Second), Stream: "stdout", Log: "connection refused"},
	})

	c := NewCollector(dir)
	matched, err := c.Search("web", "refused", Filter{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matched) != 1 || matched[0].Message != "connection refused" {
		t.Fatalf("matched = %v, want only the refused entry", matched)
	}
}
