package serialmux

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync"
)

// StatusTracker keeps the latest value of every key the detector has
// reported in its status lines.
type StatusTracker struct {
	mu     sync.Mutex
	values map[string]any
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{values: make(map[string]any)}
}

// Merge folds one JSON object into the tracked values.
func (t *StatusTracker) Merge(payload string) error {
	var values map[string]any
	if err := json.Unmarshal([]byte(payload), &values); err != nil {
		return fmt.Errorf("failed to unmarshal status: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	maps.Copy(t.values, values)
	return nil
}

// Snapshot returns a copy of the tracked values.
func (t *StatusTracker) Snapshot() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.values)
}
