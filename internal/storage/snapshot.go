package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SnapshotWriter dumps entity state to a JSONL file, one typed line per
// entity.
type SnapshotWriter struct {
	path string
	mu   sync.Mutex
}

type snapshotLine struct {
	Entity string      `json:"entity"`
	Data   interface{} `json:"data"`
}

func NewSnapshotWriter(path string) *SnapshotWriter {
	return &SnapshotWriter{path: path}
}

// WriteSnapshot replaces the snapshot file with the current contents of the
// memory store.
func (w *SnapshotWriter) WriteSnapshot(store *MemoryStore) error {
	if store == nil {
		return fmt.Errorf("store is nil")
	}

	dir := filepath.Dir(w.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	tmp := w.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open snapshot tmp: %w", err)
	}

	writer := bufio.NewWriter(file)
	lines := make([]snapshotLine, 0, 256)

	store.mu.RLock()
	for _, bundle := range store.bundles {
		lines = append(lines, snapshotLine{Entity: "bundle", Data: bundle})
	}
	for _, token := range store.tokens {
		lines = append(lines, snapshotLine{Entity: "token", Data: token})
	}
	for _, pool := range store.pools {
		lines = append(lines, snapshotLine{Entity: "pool", Data: pool})
	}
	for _, manager := range store.managers {
		lines = append(lines, snapshotLine{Entity: "pool_manager", Data: manager})
	}
	for _, hook := range store.hooks {
		lines = append(lines, snapshotLine{Entity: "hook_stats", Data: hook})
	}
	for _, tick := range store.ticks {
		lines = append(lines, snapshotLine{Entity: "tick", Data: tick})
	}
	for _, swap := range store.swaps {
		lines = append(lines, snapshotLine{Entity: "swap", Data: swap})
	}
	for _, record := range store.modifyLiq {
		lines = append(lines, snapshotLine{Entity: "modify_liquidity", Data: record})
	}
	store.mu.RUnlock()

	for _, line := range lines {
		encoded, err := json.Marshal(line)
		if err != nil {
			file.Close()
			return fmt.Errorf("marshal snapshot line: %w", err)
		}
		if _, err := writer.Write(encoded); err != nil {
			file.Close()
			return fmt.Errorf("write snapshot line: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			file.Close()
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
