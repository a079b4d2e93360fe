package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fsmkit/go-fsmkit/dsl"
	"github.com/fsmkit/go-fsmkit/templates"
)

func create(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	templateName := fs.String("template", "", "Template name (required unless --list)")
	output := fs.String("output", "", "Output file (default: stdout)")
	listTemplates := fs.Bool("list", false, "List available templates")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: fsmkit create [options]

Write a starter machine definition from a template.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Available Templates:
`)
		for _, name := range templates.List() {
			tmpl, _ := templates.Get(name)
			fmt.Fprintf(os.Stderr, "  %-12s %s\n", name, tmpl.Description)
		}
		fmt.Fprintf(os.Stderr, `
Examples:
  # List templates
  fsmkit create --list

  # Print a machine to stdout
  fsmkit create --template turnstile

  # Write a machine file
  fsmkit create --template heartbeat --output heartbeat.fsm
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *listTemplates {
		fmt.Println("Available templates:")
		for _, name := range templates.List() {
			tmpl, _ := templates.Get(name)
			fmt.Printf("  %-12s %s\n", name, tmpl.Description)
		}
		return nil
	}

	if *templateName == "" {
		fs.Usage()
		return fmt.Errorf("--template required")
	}

	tmpl, err := templates.Get(*templateName)
	if err != nil {
		return err
	}

	if *output == "" {
		fmt.Print(tmpl.Source)
		return nil
	}

	if err := os.WriteFile(*output, []byte(tmpl.Source), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Created %s machine: %s\n", tmpl.Name, *output)
	if def, _, err := dsl.Compile(tmpl.Source); err == nil && def != nil {
		fmt.Fprintf(os.Stderr, "  States: %d\n", len(def.States))
		fmt.Fprintf(os.Stderr, "  Transitions: %d\n", len(def.Transitions))
		if len(def.Timers) > 0 {
			fmt.Fprintf(os.Stderr, "  Timers: %d\n", len(def.Timers))
		}
	}
	return nil
}
