package tracelog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fsmkit/go-fsmkit/engine"
)

// ErrRunNotFound reports a run ID absent from the store.
var ErrRunNotFound = errors.New("run not found")

// storeTimeFormat pads nanoseconds to fixed width, unlike RFC3339Nano, so the
// TEXT columns sort chronologically. Reading still accepts RFC3339Nano.
const storeTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// RunSummary is a run's catalog row: identity plus step count, no steps.
type RunSummary struct {
	ID        uuid.UUID
	Machine   string
	StartedAt time.Time
	Steps     int
}

// NewStore opens (creating if needed) the database at dbPath and applies the
// schema. The caller owns the store and must Close it.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	machine    TEXT NOT NULL,
	started_at TEXT NOT NULL,
	saved_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS steps (
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	clock      INTEGER NOT NULL,
	from_state TEXT NOT NULL,
	to_state   TEXT NOT NULL,
	event      TEXT NOT NULL,
	via        TEXT,
	actions    TEXT,
	unmatched  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_machine ON runs(machine);
`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts the run and its steps in one transaction. Run IDs are
// unique; saving the same ID twice is an error.
func (s *Store) SaveRun(run *Run) error {
	if run == nil {
		return fmt.Errorf("save run: nil run")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, machine, started_at, saved_at) VALUES (?, ?, ?, ?)`,
		run.ID.String(), run.Machine,
		run.StartedAt.UTC().Format(storeTimeFormat),
		time.Now().UTC().Format(storeTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO steps
		(run_id, seq, clock, from_state, to_state, event, via, actions, unmatched)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing step insert: %w", err)
	}
	defer stmt.Close()

	for _, step := range run.Steps {
		via, err := encodeList(step.Via)
		if err != nil {
			return fmt.Errorf("step %d: %w", step.Seq, err)
		}
		actions, err := encodeList(step.Actions)
		if err != nil {
			return fmt.Errorf("step %d: %w", step.Seq, err)
		}
		_, err = stmt.Exec(
			run.ID.String(), step.Seq, step.Clock,
			step.From, step.To, step.Event,
			sql.NullString{String: via, Valid: via != ""},
			sql.NullString{String: actions, Valid: actions != ""},
			step.Unmatched,
		)
		if err != nil {
			return fmt.Errorf("inserting step %d: %w", step.Seq, err)
		}
	}

	return tx.Commit()
}

// LoadRun fetches one run with its steps in sequence order.
func (s *Store) LoadRun(id uuid.UUID) (*Run, error) {
	var machine, started string
	err := s.db.QueryRow(
		`SELECT machine, started_at FROM runs WHERE id = ?`, id.String(),
	).Scan(&machine, &started)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}
	startedAt, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return nil, fmt.Errorf("run %s: invalid started_at %q: %w", id, started, err)
	}
	run := &Run{ID: id, Machine: machine, StartedAt: startedAt}

	rows, err := s.db.Query(
		`SELECT seq, clock, from_state, to_state, event, via, actions, unmatched
		 FROM steps WHERE run_id = ? ORDER BY seq`, id.String())
	if err != nil {
		return nil, fmt.Errorf("querying steps for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var step engine.TraceEntry
		var via, actions sql.NullString
		err := rows.Scan(&step.Seq, &step.Clock, &step.From, &step.To, &step.Event,
			&via, &actions, &step.Unmatched)
		if err != nil {
			return nil, fmt.Errorf("scanning step: %w", err)
		}
		if step.Via, err = decodeList(via.String); err != nil {
			return nil, fmt.Errorf("step %d: %w", step.Seq, err)
		}
		if step.Actions, err = decodeList(actions.String); err != nil {
			return nil, fmt.Errorf("step %d: %w", step.Seq, err)
		}
		run.Steps = append(run.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating steps for %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns summaries of all stored runs, newest first.
func (s *Store) ListRuns() ([]RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.machine, r.started_at, COUNT(st.run_id)
		FROM runs r
		LEFT JOIN steps st ON st.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var idStr, started string
		var sum RunSummary
		if err := rows.Scan(&idStr, &sum.Machine, &started, &sum.Steps); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if sum.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", idStr, err)
		}
		if sum.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("run %s: invalid started_at %q: %w", idStr, started, err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return out, nil
}

// DeleteRun removes a run and, through the cascade, its steps.
func (s *Store) DeleteRun(id uuid.UUID) error {
	res, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return nil
}
