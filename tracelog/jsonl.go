package tracelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fsmkit/go-fsmkit/engine"
)

// runHeader is the first line of a JSONL run file.
type runHeader struct {
	RunID     uuid.UUID `json:"run_id"`
	Machine   string    `json:"machine"`
	StartedAt time.Time `json:"started_at"`
}

// WriteJSONL writes the run as JSON Lines: a header object on the first
// line, then one trace entry per line. Unlike CSV, an empty run round-trips,
// since the header alone carries the identity.
func WriteJSONL(w io.Writer, run *Run) error {
	if run == nil {
		return fmt.Errorf("write jsonl: nil run")
	}

	enc := json.NewEncoder(w)
	hdr := runHeader{RunID: run.ID, Machine: run.Machine, StartedAt: run.StartedAt.UTC()}
	if err := enc.Encode(hdr); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, step := range run.Steps {
		if err := enc.Encode(step); err != nil {
			return fmt.Errorf("writing step %d: %w", step.Seq, err)
		}
	}
	return nil
}

// ReadJSONL reads a run written by WriteJSONL. Blank lines are skipped; the
// first non-blank line must be the run header.
func ReadJSONL(r io.Reader) (*Run, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var run *Run
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if run == nil {
			var hdr runHeader
			if err := json.Unmarshal([]byte(line), &hdr); err != nil {
				return nil, fmt.Errorf("line %d: invalid header: %w", lineNum, err)
			}
			if hdr.RunID == uuid.Nil {
				return nil, fmt.Errorf("line %d: header missing run_id", lineNum)
			}
			run = &Run{ID: hdr.RunID, Machine: hdr.Machine, StartedAt: hdr.StartedAt}
			continue
		}

		var step engine.TraceEntry
		if err := json.Unmarshal([]byte(line), &step); err != nil {
			return nil, fmt.Errorf("line %d: invalid step: %w", lineNum, err)
		}
		run.Steps = append(run.Steps, step)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("empty input")
	}
	return run, nil
}

// WriteJSONLFile writes the run to a file, creating or truncating it.
func WriteJSONLFile(path string, run *Run) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := WriteJSONL(f, run); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadJSONLFile reads a run from a JSONL file.
func ReadJSONLFile(path string) (*Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return ReadJSONL(f)
}
