package daemon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/natefinch/atomic"
)

// HeartbeatFile is the artifact name under the workspace directory.
const HeartbeatFile = "daemon.json"

// Heartbeat is the liveness artifact a daemon maintains. Readers tolerate
// unknown fields, so new fields can be added without breaking older
// binaries.
type Heartbeat struct {
	PID             int       `json:"pid"`
	StartedAt       time.Time `json:"started_at"`
	HeartbeatAt     time.Time `json:"heartbeat_at"`
	IntervalSeconds int       `json:"interval_seconds"`
}

// Interval returns the flush interval the daemon advertised, falling back
// to the default for artifacts written before the field existed.
func (h *Heartbeat) Interval() time.Duration {
	if h.IntervalSeconds <= 0 {
		return DefaultFlushInterval
	}
	return time.Duration(h.IntervalSeconds) * time.Second
}

// Fresh reports whether the heartbeat is newer than the staleness
// threshold (3x the advertised flush interval).
func (h *Heartbeat) Fresh(now time.Time) bool {
	return now.Sub(h.HeartbeatAt) < stalenessFactor*h.Interval()
}

// readHeartbeat loads the artifact at path. Returns (nil, nil) when the
// artifact does not exist.
func readHeartbeat(path string) (*Heartbeat, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read heartbeat: %w", err)
	}
	var hb Heartbeat
	if err := json.Unmarshal(data, &hb); err != nil {
		return nil, fmt.Errorf("failed to parse heartbeat: %w", err)
	}
	return &hb, nil
}

// writeHeartbeat persists the artifact atomically so a concurrent reader
// never observes a torn file.
func writeHeartbeat(path string, hb *Heartbeat) error {
	data, err := json.MarshalIndent(hb, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode heartbeat: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write heartbeat: %w", err)
	}
	return nil
}
