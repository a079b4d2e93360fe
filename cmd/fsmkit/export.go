package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fsmkit/go-fsmkit/graph"
	"github.com/fsmkit/go-fsmkit/model"
)

func export(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	asGraph := fs.Bool("graph", false, "Export the node/edge graph (default)")
	asModel := fs.Bool("model", false, "Export the machine model JSON")
	output := fs.String("output", "", "Output file (default: stdout)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: fsmkit export <machine.fsm> [options]

Export a machine as JSON. The graph form is a plain node/edge structure for
layout and rendering tools; the model form round-trips through the machine
JSON schema.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Graph JSON for a renderer
  fsmkit export door.fsm --graph --output door_graph.json

  # Machine model JSON
  fsmkit export door.fsm --model
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("machine file required")
	}
	if *asGraph && *asModel {
		return fmt.Errorf("--graph and --model are mutually exclusive")
	}

	def, err := loadMachine(fs.Arg(0))
	if err != nil {
		return err
	}

	var data []byte
	if *asModel {
		data, err = model.ToJSON(def)
	} else {
		data, err = graph.ToJSON(graph.Export(def))
	}
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	if *output == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Exported to %s\n", *output)
	return nil
}
