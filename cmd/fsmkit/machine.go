package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fsmkit/go-fsmkit/dsl"
	"github.com/fsmkit/go-fsmkit/model"
	"github.com/fsmkit/go-fsmkit/validation"
)

// loadMachine reads and compiles a machine file. Validation failures are
// printed before the error returns, so every command shares one diagnostic
// format.
func loadMachine(path string) (*model.Definition, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read machine: %w", err)
	}
	def, report, err := dsl.Compile(string(src))
	if err != nil {
		return nil, err
	}
	if def == nil {
		printIssues(os.Stderr, report.Errors)
		return nil, fmt.Errorf("%s: %d validation error(s)", path, len(report.Errors))
	}
	return def, nil
}

func printIssues(w io.Writer, issues []validation.Issue) {
	for _, issue := range issues {
		mark := "✗"
		if issue.Severity == "warning" {
			mark = "⚠"
		}
		fmt.Fprintf(w, "  %s [%s] %s\n", mark, issue.Category, issue.Message)
		if len(issue.Location) > 0 {
			fmt.Fprintf(w, "    Location: %v\n", issue.Location)
		}
		if issue.Suggestion != "" {
			fmt.Fprintf(w, "    Suggestion: %s\n", issue.Suggestion)
		}
	}
}
