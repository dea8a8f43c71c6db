package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"poolscope/internal/model"
)

// maxLineBytes bounds one JSONL event line.
const maxLineBytes = 16 * 1024 * 1024

// ScanEvents streams event envelopes from a JSONL file in file order,
// calling fn for each. Blank lines are skipped; a malformed line fails the
// scan with its line number.
func ScanEvents(path string, fn func(model.EventEnvelope) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open events: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var env model.EventEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("line %d: decode event: %w", line, err)
		}
		if err := fn(env); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan events: %w", err)
	}
	return nil
}
