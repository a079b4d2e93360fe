package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/fsmkit/go-fsmkit/dsl"
	"github.com/fsmkit/go-fsmkit/validation"
)

func validate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	outputJSON := fs.Bool("json", false, "Output the report as JSON")
	outputFile := fs.String("output", "", "Write the JSON report to a file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: fsmkit validate <machine.fsm> [options]

Compile a machine definition and report every validation finding.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Checks performed:
  - Identifier syntax and duplicate declarations
  - Initial state resolves to a declared state
  - Transition endpoints resolve; no transition starts at a choice
  - Every choice has a conditioned branch and exactly one else
  - Choice chains cannot cycle
  - Timer events referenced by some transition (warning)
  - Unreachable states (warning)

Exit status is 0 when the machine is valid (warnings allowed) and 1 when
errors were found.

Examples:
  # Print findings
  fsmkit validate door.fsm

  # Report as JSON
  fsmkit validate door.fsm --json

  # Save the report
  fsmkit validate door.fsm --json --output report.json
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("machine file required")
	}

	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read machine: %w", err)
	}

	// Syntax errors abort before any report exists; they already carry
	// line and column.
	_, report, err := dsl.Compile(string(src))
	if err != nil {
		return err
	}

	if *outputJSON || *outputFile != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		if *outputFile != "" {
			if err := os.WriteFile(*outputFile, data, 0644); err != nil {
				return fmt.Errorf("write file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Validation report written to %s\n", *outputFile)
		} else {
			fmt.Println(string(data))
		}
	} else {
		printReport(report)
	}

	if !report.Valid {
		os.Exit(1)
	}
	return nil
}

func printReport(report *validation.Report) {
	fmt.Println("=== Machine Validation ===")
	fmt.Printf("Machine: %d states, %d choices, %d transitions, %d timers\n",
		report.Summary.States,
		report.Summary.Choices,
		report.Summary.Transitions,
		report.Summary.Timers)
	fmt.Println()

	if len(report.Errors) > 0 {
		fmt.Printf("Errors (%d):\n", len(report.Errors))
		printIssues(os.Stdout, report.Errors)
		fmt.Println()
	}

	if len(report.Warnings) > 0 {
		fmt.Printf("Warnings (%d):\n", len(report.Warnings))
		printIssues(os.Stdout, report.Warnings)
		fmt.Println()
	}

	fmt.Println("───────────────────────────────────")
	if report.Valid {
		fmt.Println("✓ Validation PASSED")
	} else {
		fmt.Println("✗ Validation FAILED")
		fmt.Printf("  %d error(s) must be fixed\n", len(report.Errors))
	}
}
