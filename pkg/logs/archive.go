package logs

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
	"github.com/cuemby/vpncoord/pkg/types"
)

const archiveDateLayout = "20060102"

func (c *Collector) archivePath(containerID string, cutoff time.Time, compress bool) string {
	name := fmt.Sprintf("%s.archive-%s.log", containerID, cutoff.Format(archiveDateLayout))
	if compress {
		name += ".gz"
	}
	return filepath.Join(c.baseDir, name)
}

// Archive splits containerID's log at before: entries older than before are
// moved into a dated archive file (optionally gzip-compressed), and the main
// log file is rewritten to keep only entries at or after before.
func (c *Collector) Archive(containerID string, before time.Time, compress bool) error {
	entries, err := c.ReadEntries(containerID, Filter{})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	var older, kept []byte
	for _, e := range entries {
		line, err := encodeLine(e)
		if err != nil {
			continue
		}
		if e.Timestamp.Before(before) {
			older = append(older, line...)
		} else {
			kept = append(kept, line...)
		}
	}
	if len(older) == 0 {
		return nil
	}

	if err := c.writeArchiveFile(containerID, before, compress, older); err != nil {
		return err
	}

	tmp := c.logPath(containerID) + ".tmp"
	if err := os.WriteFile(tmp, kept, 0644); err != nil {
		return vpnerrors.NewStorageError("write trimmed log", err)
	}
	if err := os.Rename(tmp, c.logPath(containerID)); err != nil {
		return vpnerrors.NewStorageError("replace log file", err)
	}
	return nil
}

func (c *Collector) writeArchiveFile(containerID string, cutoff time.Time, compress bool, data []byte) error {
	path := c.archivePath(containerID, cutoff, compress)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return vpnerrors.NewStorageError("open archive file", err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(f)
		w = gz
	}
	if _, err := w.Write(data); err != nil {
		return vpnerrors.NewStorageError("write archive file", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return vpnerrors.NewStorageError("close archive gzip writer", err)
		}
	}
	return nil
}

// Cleanup archives and trims entries older than keepDays, keeping only
// the most recent window of containerID's log.
func (c *Collector) Cleanup(containerID string, keepDays int) error {
	cutoff := time.Now().AddDate(0, 0, -keepDays)
	return c.Archive(containerID, cutoff, true)
}

// encodeLine re-serializes a parsed entry back into the newline-delimited
// JSON record format ReadEntries/ParseLine expect.
func encodeLine(e types.ContainerLogEntry) ([]byte, error) {
	rec := rawRecord{
		Time:   e.Timestamp,
		Stream: string(e.Stream),
		Log:    e.Message,
		Attrs:  e.Attributes,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
