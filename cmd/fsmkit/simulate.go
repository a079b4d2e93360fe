package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fsmkit/go-fsmkit/engine"
	"github.com/fsmkit/go-fsmkit/logging"
	"github.com/fsmkit/go-fsmkit/scenario"
	"github.com/fsmkit/go-fsmkit/tracelog"
)

func simulate(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	scenarioFile := fs.String("scenario", "", "Scenario YAML file (required)")
	dbPath := fs.String("db", "", "Save the run to this SQLite database")
	csvPath := fs.String("csv", "", "Write the run as CSV")
	jsonlPath := fs.String("jsonl", "", "Write the run as JSONL")
	traceLimit := fs.Int("trace-limit", engine.DefaultTraceLimit, "Retained trace entries")
	verbose := fs.Bool("verbose", false, "Log each step to stderr")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: fsmkit simulate <machine.fsm> --scenario <file.yaml> [options]

Run a scripted scenario against a machine and report the trace. Expectation
failures are collected, printed, and turn the exit status to 1.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Run a scenario
  fsmkit simulate door.fsm --scenario smoke.yaml

  # Record the run for later replay or proving
  fsmkit simulate door.fsm --scenario smoke.yaml --db runs.db

  # Export the trace directly
  fsmkit simulate door.fsm --scenario smoke.yaml --csv trace.csv --jsonl trace.jsonl
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("machine file required")
	}
	if *scenarioFile == "" {
		fs.Usage()
		return fmt.Errorf("--scenario required")
	}

	def, err := loadMachine(fs.Arg(0))
	if err != nil {
		return err
	}
	sc, err := scenario.LoadFile(*scenarioFile)
	if err != nil {
		return err
	}

	log := logging.Nop()
	if *verbose {
		log = logging.New("debug", logging.FormatConsole)
	}
	sim := engine.NewSimulator(&engine.Options{
		TraceLimit: *traceLimit,
		Logger:     log,
	})

	out, err := scenario.Run(sim, def, sc)
	if err != nil {
		return fmt.Errorf("scenario %q: %w", sc.Name, err)
	}

	run := tracelog.Capture(sim)

	// Persist before reporting so a failed expectation still leaves a
	// record to inspect.
	if *dbPath != "" {
		store, err := tracelog.NewStore(*dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveRun(run); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Saved run %s to %s\n", run.ID, *dbPath)
	}
	if *csvPath != "" {
		if err := tracelog.WriteCSVFile(*csvPath, run); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", *csvPath)
	}
	if *jsonlPath != "" {
		if err := tracelog.WriteJSONLFile(*jsonlPath, run); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", *jsonlPath)
	}

	printOutcome(out, run)

	if !out.OK() {
		os.Exit(1)
	}
	return nil
}

func printOutcome(out *scenario.Outcome, run *tracelog.Run) {
	fmt.Printf("=== Scenario: %s ===\n", out.Scenario)
	fmt.Printf("Machine: %s\n", run.Machine)
	fmt.Printf("Posted: %d events, ticked %d units\n", out.Posted, out.Ticked)
	fmt.Printf("Final state: %s\n", out.Final)
	fmt.Println()

	if len(run.Steps) > 0 {
		fmt.Printf("Trace (%d entries):\n", len(run.Steps))
		for _, e := range run.Steps {
			line := fmt.Sprintf("  #%-3d t=%-5d %s --%s--> %s", e.Seq, e.Clock, e.From, e.Event, e.To)
			if len(e.Via) > 0 {
				line += "  via " + strings.Join(e.Via, ", ")
			}
			if len(e.Actions) > 0 {
				line += "  / " + strings.Join(e.Actions, ", ")
			}
			if e.Unmatched {
				line += "  (unmatched)"
			}
			fmt.Println(line)
		}
		fmt.Println()
	}

	if out.OK() {
		fmt.Println("✓ All expectations held")
	} else {
		fmt.Printf("✗ %d expectation(s) failed:\n", len(out.Failures))
		for _, f := range out.Failures {
			fmt.Printf("  %s\n", f)
		}
	}
}
