package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/piwi3910/ceph2swift/pkg/objstore"
)

// failedObject is one JSON line in the failed-object log.
type failedObject struct {
	RunID     string    `json:"runId"`
	Stage     string    `json:"stage"`
	Key       string    `json:"key"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// FailureLog appends per-item failures to a JSON-lines file in the state
// directory, so a failed run leaves a machine-readable record of what to
// retry.
type FailureLog struct {
	mu    sync.Mutex
	file  *os.File
	runID string
}

// NewFailureLog opens (creating if needed) the failed-object log under
// stateDir, tagging every entry with runID.
func NewFailureLog(stateDir, runID string) (*FailureLog, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	path := filepath.Join(stateDir, "failed.log")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open failed log: %w", err)
	}

	return &FailureLog{file: file, runID: runID}, nil
}

// Record appends one failure entry. Logging failures are swallowed; the
// failure log must never abort a migration.
func (l *FailureLog) Record(stage string, item objstore.ObjectRef, cause error) {
	entry := failedObject{
		RunID:     l.runID,
		Stage:     stage,
		Key:       item.Name,
		Error:     cause.Error(),
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.file.Write(append(data, '\n'))
}

// Close closes the underlying file.
func (l *FailureLog) Close() error {
	return l.file.Close()
}
