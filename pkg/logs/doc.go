// Package logs collects and serves per-container logs (SPEC_FULL.md §4.G).
//
// Each container's runtime driver writes newline-delimited JSON records of
// the form {"time", "stream", "log", "attrs"} to a per-container file under
// a Collector's base directory. ParseLine turns one such line into a
// types.ContainerLogEntry, inferring its Level from the stream (stderr
// always maps to LogLevelError) and, failing that, a "warn"/"debug" token
// in the message.
//
// # Reading
//
//	c := logs.NewCollector(filepath.Join(installDir, "logs"))
//	entries, err := c.ReadEntries(containerID, logs.Filter{Tail: 100})
//
// Filter narrows by container, time range, level, and stream. A non-zero
// Tail seeks to an estimated byte offset (200 bytes per line) from the end
// of the file and realigns to the next full line rather than scanning the
// whole file; if the seek itself fails the Collector falls back to
// rewinding and streaming every line.
//
// # Following
//
// Follow polls the log file for newly appended lines every 100ms and
// streams matching entries on a channel until its context is cancelled.
//
// # Archiving
//
// Archive moves entries older than a cutoff into a dated
// "<container>.archive-YYYYMMDD.log" file (optionally gzip-compressed) and
// rewrites the main log to keep only the remaining entries. Cleanup is
// Archive called with a cutoff keepDays in the past.
//
// See also pkg/runtime (produces the log stream Collector reads), pkg/deploy
// (owns the logs/ directory layout), SPEC_FULL.md §4.G.
package logs
