package logs

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	vpnerrors "github.com/cuemby/vpncoord/pkg/errors"
	"github.com/cuemby/vpncoord/pkg/types"
)

// bytesPerLineEstimate is the heuristic used to seek near the tail of a
// log file before realigning on a newline (§4.G).
const bytesPerLineEstimate = 200

// followPollInterval is how often Follow checks a log file for new
// entries.
const followPollInterval = 100 * time.Millisecond

// Collector reads and manages per-container JSON-line log files rooted at
// baseDir; pkg/deploy.PrepareDirectoryTree creates baseDir's parent.
type Collector struct {
	baseDir string
}

// NewCollector creates a Collector reading/writing log files under baseDir.
func NewCollector(baseDir string) *Collector {
	return &Collector{baseDir: baseDir}
}

func (c *Collector) logPath(containerID string) string {
	return filepath.Join(c.baseDir, containerID+".log")
}

// ReadEntries returns every entry in containerID's log file matching
// filter, applying filter.Tail via the seek-then-realign heuristic when
// set.
func (c *Collector) ReadEntries(containerID string, filter Filter) ([]types.ContainerLogEntry, error) {
	f, err := os.Open(c.logPath(containerID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, vpnerrors.NewStorageError("open log file", err)
	}
	defer f.Close()

	if filter.Tail > 0 {
		if err := seekTail(f, filter.Tail); err != nil {
			// Seek failed; rewind and stream everything instead.
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return nil, vpnerrors.NewStorageError("rewind log file", err)
			}
		}
	}

	var entries []types.ContainerLogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		entry, err := ParseLine(containerID, line)
		if err != nil {
			continue
		}
		if filter.matches(entry) {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return entries, vpnerrors.NewStorageError("scan log file", err)
	}
	return entries, nil
}

// seekTail positions f near its last n lines using the bytesPerLineEstimate
// heuristic, then realigns to the start of the next full line.
func seekTail(f *os.File, n int) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}

	offset := int64(n) * bytesPerLineEstimate
	pos := info.Size() - offset
	if pos <= 0 {
		_, err := f.Seek(0, io.SeekStart)
		return err
	}

	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		return err
	}

	// Realign: discard the partial line we landed in the middle of.
	reader := bufio.NewReader(f)
	partial, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	aligned := pos + int64(len(partial))
	_, err = f.Seek(pos, io.SeekStart)
	if err != nil {
		return err
	}
	discard := aligned - pos
	if discard > 0 {
		if _, err := f.Seek(discard, io.SeekCurrent); err != nil {
			return err
		}
	}
	return nil
}

// Follow streams new entries appended to containerID's log file, polling
// every followPollInterval, until ctx is cancelled. The returned channel
// is closed when Follow returns.
func (c *Collector) Follow(ctx context.Context, containerID string, filter Filter) (<-chan types.ContainerLogEntry, error) {
	f, err := os.Open(c.logPath(containerID))
	if err != nil {
		return nil, vpnerrors.NewStorageError("open log file", err)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, vpnerrors.NewStorageError("seek to end", err)
	}

	out := make(chan types.ContainerLogEntry, 64)
	go func() {
		defer close(out)
		defer f.Close()

		reader := bufio.NewReader(f)
		ticker := time.NewTicker(followPollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for {
					line, err := reader.ReadBytes('\n')
					if len(line) > 0 && err == nil {
						entry, perr := ParseLine(containerID, line)
						if perr == nil && filter.matches(entry) {
							select {
							case out <- entry:
							case <-ctx.Done():
								return
							}
						}
						continue
					}
					break
				}
			}
		}
	}()
	return out, nil
}

// Search scans every entry of containerID's log matching filter for
// pattern in its message or attribute values (case-insensitive substring).
func (c *Collector) Search(containerID, pattern string, filter Filter) ([]types.ContainerLogEntry, error) {
	entries, err := c.ReadEntries(containerID, filter)
	if err != nil {
		return nil, err
	}
	var matched []types.ContainerLogEntry
	for _, e := range entries {
		if matchesPattern(e, pattern) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}
