package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/fsmkit/go-fsmkit/tracelog"
)

func runs(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dbPath := fs.String("db", "", "SQLite trace database (required)")
	deleteID := fs.String("delete", "", "Delete a run instead of listing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: fsmkit runs --db <file> [options]

List runs stored in a trace database, newest first.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # List stored runs
  fsmkit runs --db runs.db

  # Delete one run and its steps
  fsmkit runs --db runs.db --delete 2f2d8c1e-9a30-4a92-b7e1-08f0c23a55d1
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dbPath == "" {
		fs.Usage()
		return fmt.Errorf("--db required")
	}

	store, err := tracelog.NewStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if *deleteID != "" {
		id, err := uuid.Parse(*deleteID)
		if err != nil {
			return fmt.Errorf("invalid run ID: %w", err)
		}
		if err := store.DeleteRun(id); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Deleted run %s\n", id)
		return nil
	}

	summaries, err := store.ListRuns()
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Println("No runs stored")
		return nil
	}

	fmt.Printf("=== Stored Runs (%d) ===\n\n", len(summaries))
	fmt.Printf("%-36s  %-16s  %-20s  %s\n", "ID", "MACHINE", "STARTED", "STEPS")
	for _, s := range summaries {
		fmt.Printf("%-36s  %-16s  %-20s  %5d\n",
			s.ID, s.Machine, s.StartedAt.UTC().Format(time.RFC3339), s.Steps)
	}
	return nil
}
