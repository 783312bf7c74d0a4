package logs

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cuemby/vpncoord/pkg/types"
)

// rawRecord is one newline-delimited JSON line as written by the runtime's
// log driver.
type rawRecord struct {
	Time  time.Time         `json:"time"`
	Stream string           `json:"stream"`
	Log    string           `json:"log"`
	Attrs  map[string]string `json:"attrs"`
}

// ParseLine parses one raw log line for containerID into a
// types.ContainerLogEntry. Level is inferred: stderr always maps to
// Error; otherwise a "warn"/"debug" token in the message selects that
// level, defaulting to Info.
func ParseLine(containerID string, line []byte) (types.ContainerLogEntry, error) {
	var rec rawRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return types.ContainerLogEntry{}, err
	}

	stream := types.LogStreamStdout
	if rec.Stream == string(types.LogStreamStderr) {
		stream = types.LogStreamStderr
	}

	return types.ContainerLogEntry{
		Timestamp:   rec.Time,
		ContainerID: containerID,
		Stream:      stream,
		Level:       inferLevel(stream, rec.Log),
		Message:     rec.Log,
		Attributes:  rec.Attrs,
	}, nil
}

func inferLevel(stream types.LogStream, message string) types.LogLevel {
	if stream == types.LogStreamStderr {
		return types.LogLevelError
	}
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "warn"):
		return types.LogLevelWarn
	case strings.Contains(lower, "debug"):
		return types.LogLevelDebug
	default:
		return types.LogLevelInfo
	}
}
