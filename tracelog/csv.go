package tracelog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fsmkit/go-fsmkit/engine"
)

// csvHeader is the column order WriteCSV emits. ReadCSV locates columns by
// name, so reordered or extended files still load.
var csvHeader = []string{
	"run_id", "machine", "started_at",
	"seq", "clock", "from", "to", "event", "via", "actions", "unmatched",
}

// WriteCSV writes the run as CSV, one row per step. Run identity repeats on
// every row so a file stays self-describing when rows are filtered or
// concatenated; via and actions cells hold JSON arrays.
func WriteCSV(w io.Writer, run *Run) error {
	if run == nil {
		return fmt.Errorf("write csv: nil run")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	id := run.ID.String()
	started := run.StartedAt.UTC().Format(time.RFC3339Nano)
	for _, step := range run.Steps {
		via, err := encodeList(step.Via)
		if err != nil {
			return fmt.Errorf("step %d: %w", step.Seq, err)
		}
		actions, err := encodeList(step.Actions)
		if err != nil {
			return fmt.Errorf("step %d: %w", step.Seq, err)
		}
		record := []string{
			id, run.Machine, started,
			strconv.Itoa(step.Seq), strconv.Itoa(step.Clock),
			step.From, step.To, step.Event,
			via, actions,
			strconv.FormatBool(step.Unmatched),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing step %d: %w", step.Seq, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a run written by WriteCSV. Every row must carry the same run
// ID; run identity lives on the rows, so a header-only file is an error.
func ReadCSV(r io.Reader) (*Run, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	idx := make([]int, len(csvHeader))
	for i, col := range csvHeader {
		j, ok := colIndex[col]
		if !ok {
			return nil, fmt.Errorf("column %q not found in header: %v", col, header)
		}
		idx[i] = j
	}

	var run *Run
	lineNum := 2
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", lineNum, err)
		}

		id, err := uuid.Parse(record[idx[0]])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid run id %q: %w", lineNum, record[idx[0]], err)
		}
		if run == nil {
			started, err := time.Parse(time.RFC3339Nano, record[idx[2]])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid started_at %q: %w", lineNum, record[idx[2]], err)
			}
			run = &Run{ID: id, Machine: record[idx[1]], StartedAt: started}
		} else if run.ID != id {
			return nil, fmt.Errorf("line %d: run %s mixed into run %s", lineNum, id, run.ID)
		}

		var step engine.TraceEntry
		if step.Seq, err = strconv.Atoi(record[idx[3]]); err != nil {
			return nil, fmt.Errorf("line %d: invalid seq %q: %w", lineNum, record[idx[3]], err)
		}
		if step.Clock, err = strconv.Atoi(record[idx[4]]); err != nil {
			return nil, fmt.Errorf("line %d: invalid clock %q: %w", lineNum, record[idx[4]], err)
		}
		step.From = record[idx[5]]
		step.To = record[idx[6]]
		step.Event = record[idx[7]]
		if step.Via, err = decodeList(record[idx[8]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if step.Actions, err = decodeList(record[idx[9]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if step.Unmatched, err = strconv.ParseBool(record[idx[10]]); err != nil {
			return nil, fmt.Errorf("line %d: invalid unmatched %q: %w", lineNum, record[idx[10]], err)
		}

		run.Steps = append(run.Steps, step)
		lineNum++
	}

	if run == nil {
		return nil, fmt.Errorf("no step rows")
	}
	return run, nil
}

// WriteCSVFile writes the run to a file, creating or truncating it.
func WriteCSVFile(path string, run *Run) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := WriteCSV(f, run); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSVFile reads a run from a CSV file.
func ReadCSVFile(path string) (*Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}
