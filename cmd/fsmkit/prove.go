package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/fsmkit/go-fsmkit/tracelog"
	"github.com/fsmkit/go-fsmkit/traceproof"
)

func prove(args []string) error {
	fs := flag.NewFlagSet("prove", flag.ExitOnError)
	runID := fs.String("run", "", "Run ID to attest (required)")
	dbPath := fs.String("db", "", "SQLite trace database (required)")
	maxSteps := fs.Int("max-steps", 0, "Circuit step capacity (default: run length)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: fsmkit prove <machine.fsm> --run <id> --db <file> [options]

Generate and verify a Groth16 proof that a stored run is a valid structural
run of the machine: initial state, final state, and step count are public;
the event sequence stays private. Guard evaluation is host behavior and not
part of the proven relation.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Circuit compilation and trusted setup happen on every invocation, so
proving a long run takes time. Unmatched trace entries did not move the
machine and are not proven.

Examples:
  # Attest a recorded run
  fsmkit prove door.fsm --run 2f2d8c1e-9a30-4a92-b7e1-08f0c23a55d1 --db runs.db

  # Fix the circuit capacity (pads shorter runs)
  fsmkit prove door.fsm --run <id> --db runs.db --max-steps 32
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("machine file required")
	}
	if *runID == "" {
		fs.Usage()
		return fmt.Errorf("--run required")
	}
	if *dbPath == "" {
		fs.Usage()
		return fmt.Errorf("--db required")
	}

	id, err := uuid.Parse(*runID)
	if err != nil {
		return fmt.Errorf("invalid run ID: %w", err)
	}

	def, err := loadMachine(fs.Arg(0))
	if err != nil {
		return err
	}

	store, err := tracelog.NewStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.LoadRun(id)
	if err != nil {
		return err
	}

	steps := 0
	for _, e := range run.Steps {
		if !e.Unmatched {
			steps++
		}
	}
	capacity := *maxSteps
	if capacity <= 0 {
		capacity = steps
	}
	if capacity < 1 {
		capacity = 1
	}

	prover := traceproof.NewProver()

	start := time.Now()
	proof, err := prover.ProveRun(def, run, capacity)
	if err != nil {
		return err
	}
	elapsed := time.Since(start).Seconds()

	fmt.Println("=== Run Attestation ===")
	fmt.Printf("Machine: %s\n", def.Name)
	fmt.Printf("Run: %s\n", run.ID)
	fmt.Printf("Steps: %d proven, capacity %d\n", steps, capacity)
	fmt.Printf("Constraints: %d\n", proof.Constraints)
	fmt.Printf("Proving time: %.2fs\n", elapsed)

	if err := prover.Verify(proof); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	fmt.Println("✓ Proof verified")
	return nil
}
