package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "create":
		if err := create(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "validate":
		if err := validate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "generate":
		if err := generate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "simulate":
		if err := simulate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "export":
		if err := export(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "prove":
		if err := prove(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "runs":
		if err := runs(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Println("fsmkit version 1.0.0")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`fsmkit - state machine workbench

Usage:
  fsmkit <command> [options]

Commands:
  create     Write a starter machine from a template
  validate   Compile a machine and report every finding
  generate   Emit source code for a machine
  simulate   Run a scripted scenario against a machine
  export     Export a machine as graph or model JSON
  prove      Attest a stored run with a zero-knowledge proof
  runs       List or delete runs in a trace database
  help       Show this help message
  version    Show version information

Examples:
  # Start from a template
  fsmkit create --template turnstile --output turnstile.fsm

  # Validate and inspect
  fsmkit validate turnstile.fsm

  # Run a scenario and record the trace
  fsmkit simulate turnstile.fsm --scenario smoke.yaml --db runs.db

  # Attest a recorded run
  fsmkit prove turnstile.fsm --run <id> --db runs.db

For command-specific help, run:
  fsmkit <command> --help`)
}
