package watchdog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MarkerFile is the restart marker's name inside the runtime directory.
const MarkerFile = "wd_restart.json"

// Marker records that the supervised process is about to replace itself
// with the workload because the previous workload stopped answering. The
// new workload reads it at startup to report the restart.
type Marker struct {
	Reason      string    `json:"reason"`
	DeadPID     int       `json:"dead_pid"`
	RestartedBy int       `json:"restarted_by"`
	Workload    string    `json:"workload"`
	Timestamp   time.Time `json:"timestamp"`
}

func MarkerPath(dir string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, MarkerFile)
}

// WriteMarker atomically replaces the marker at path.
func WriteMarker(path string, m Marker) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling restart marker: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating restart marker: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing restart marker: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing restart marker: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing restart marker: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming restart marker: %w", err)
	}
	return nil
}

// TakeMarker reads and removes the marker at path. ok is false when there
// is no marker or it is older than maxAge.
func TakeMarker(path string, maxAge time.Duration, now time.Time) (m Marker, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Marker{}, false, nil
		}
		return Marker{}, false, err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Marker{}, false, fmt.Errorf("removing restart marker: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return Marker{}, false, fmt.Errorf("parsing restart marker %s: %w", path, err)
	}
	if maxAge > 0 && now.Sub(m.Timestamp) > maxAge {
		return Marker{}, false, nil
	}
	return m, true, nil
}
