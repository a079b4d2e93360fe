package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fsmkit/go-fsmkit/codegen"
)

func generate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	target := fs.String("target", "standard", "Code generation target")
	pkgName := fs.String("package", "", "Generated package name (default: machine name)")
	output := fs.String("output", "", "Output file (default: stdout)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: fsmkit generate <machine.fsm> [options]

Emit source code for a validated machine.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Targets:
`)
		for _, t := range codegen.Targets() {
			fmt.Fprintf(os.Stderr, "  %s\n", t)
		}
		fmt.Fprintf(os.Stderr, `
Examples:
  # Print generated Go to stdout
  fsmkit generate traffic.fsm

  # Write a package file
  fsmkit generate traffic.fsm --package traffic --output traffic_gen.go
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("machine file required")
	}

	def, err := loadMachine(fs.Arg(0))
	if err != nil {
		return err
	}

	out, err := codegen.Generate(def, codegen.Target(*target), codegen.Options{
		PackageName: *pkgName,
	})
	if err != nil {
		return err
	}

	if *output == "" {
		os.Stdout.Write(out)
		return nil
	}
	if err := os.WriteFile(*output, out, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Generated %s code: %s\n", *target, *output)
	return nil
}
