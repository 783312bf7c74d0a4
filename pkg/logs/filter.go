package logs

import (
	"strings"
	"time"

	"github.com/cuemby/vpncoord/pkg/types"
)

// Filter narrows which entries ReadEntries/Follow return.
type Filter struct {
	Containers []string // empty matches any
	Since      time.Time
	Until      time.Time
	Tail       int // 0 = no tail limit, read from the start
	Follow     bool
	Levels     []types.LogLevel // empty matches any
	Streams    []types.LogStream // empty matches any
}

func (f Filter) matchesContainer(id string) bool {
	if len(f.Containers) == 0 {
		return true
	}
	for _, c := range f.Containers {
		if c == id {
			return true
		}
	}
	return false
}

func (f Filter) matches(e types.ContainerLogEntry) bool {
	if !f.matchesContainer(e.ContainerID) {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	if len(f.Levels) > 0 && !containsLevel(f.Levels, e.Level) {
		return false
	}
	if len(f.Streams) > 0 && !containsStream(f.Streams, e.Stream) {
		return false
	}
	return true
}

func containsLevel(levels []types.LogLevel, l types.LogLevel) bool {
	for _, x := range levels {
		if x == l {
			return true
		}
	}
	return false
}

func containsStream(streams []types.LogStream, s types.LogStream) bool {
	for _, x := range streams {
		if x == s {
			return true
		}
	}
	return false
}

func matchesPattern(e types.ContainerLogEntry, pattern string) bool {
	pattern = strings.ToLower(pattern)
	if strings.Contains(strings.ToLower(e.Message), pattern) {
		return true
	}
	for _, v := range e.Attributes {
		if strings.Contains(strings.ToLower(v), pattern) {
			return true
		}
	}
	return false
}
