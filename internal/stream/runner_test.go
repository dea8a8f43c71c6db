package stream

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"poolscope/internal/model"
)

type recordingProcessor struct {
	mu      sync.Mutex
	byChain map[uint64][]uint64
}

func (p *recordingProcessor) ProcessEnvelope(_ context.Context, env model.EventEnvelope, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.byChain == nil {
		p.byChain = make(map[uint64][]uint64)
	}
	p.byChain[env.ChainID] = append(p.byChain[env.ChainID], env.LogIndex)
	return nil
}

func writeEventsFile(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write events file: %v", err)
	}
	return path
}

func eventLine(chainID, logIndex uint64) string {
	return fmt.Sprintf(`{"chain_id":%d,"block_number":1,"timestamp":1,"tx_hash":"0x%d","log_index":%d,"event_name":"Swap","params":{}}`,
		chainID, logIndex, logIndex)
}

func TestRunnerPreservesPerChainOrder(t *testing.T) {
	var lines []string
	for i := uint64(0); i < 50; i++ {
		lines = append(lines, eventLine(1, i))
		lines = append(lines, eventLine(137, i))
	}
	path := writeEventsFile(t, lines)

	processor := &recordingProcessor{}
	runner := NewRunner(RunConfig{}, processor, nil)
	if err := runner.Run(context.Background(), path); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, chainID := range []uint64{1, 137} {
		got := processor.byChain[chainID]
		if len(got) != 50 {
			t.Fatalf("chain %d: processed %d events, want 50", chainID, len(got))
		}
		for i, logIndex := range got {
			if logIndex != uint64(i) {
				t.Fatalf("chain %d: event %d out of order: got log index %d", chainID, i, logIndex)
			}
		}
	}
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	lines := []string{eventLine(1, 0), eventLine(1, 1), eventLine(1, 2)}
	path := writeEventsFile(t, lines)
	checkpoint := filepath.Join(t.TempDir(), "checkpoint.json")
	cfg := RunConfig{CheckpointPath: checkpoint, CheckpointEnabled: true}

	first := &recordingProcessor{}
	if err := NewRunner(cfg, first, nil).Run(context.Background(), path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(first.byChain[1]) != 3 {
		t.Fatalf("first run processed %d events, want 3", len(first.byChain[1]))
	}

	// The rerun over the same file must skip the whole applied prefix.
	second := &recordingProcessor{}
	if err := NewRunner(cfg, second, nil).Run(context.Background(), path); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second.byChain[1]) != 0 {
		t.Fatalf("second run reprocessed %d events, want 0", len(second.byChain[1]))
	}
}

type failingProcessor struct {
	recordingProcessor
	failAt uint64
}

func (p *failingProcessor) ProcessEnvelope(ctx context.Context, env model.EventEnvelope, preload bool) error {
	if env.LogIndex == p.failAt {
		return fmt.Errorf("synthetic apply failure")
	}
	return p.recordingProcessor.ProcessEnvelope(ctx, env, preload)
}

func TestRunnerCheckpointsAppliedPrefixOnFailure(t *testing.T) {
	lines := []string{eventLine(1, 0), eventLine(1, 1), eventLine(1, 2)}
	path := writeEventsFile(t, lines)
	checkpoint := filepath.Join(t.TempDir(), "checkpoint.json")
	cfg := RunConfig{CheckpointPath: checkpoint, CheckpointEnabled: true}

	first := &failingProcessor{failAt: 1}
	if err := NewRunner(cfg, first, nil).Run(context.Background(), path); err == nil {
		t.Fatalf("first run should fail")
	}
	if got := first.byChain[1]; len(got) != 1 || got[0] != 0 {
		t.Fatalf("first run applied %v, want [0]", got)
	}

	// The event applied before the failure is committed state; the rerun
	// must resume after it, not re-apply it.
	second := &recordingProcessor{}
	if err := NewRunner(cfg, second, nil).Run(context.Background(), path); err != nil {
		t.Fatalf("second run: %v", err)
	}
	got := second.byChain[1]
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("second run applied %v, want [1 2]", got)
	}
}

func TestScanEventsRejectsMalformedLine(t *testing.T) {
	path := writeEventsFile(t, []string{eventLine(1, 0), "{not json"})
	err := ScanEvents(path, func(model.EventEnvelope) error { return nil })
	if err == nil {
		t.Fatalf("malformed line should fail the scan")
	}
}
