// Package validation provides semantic analysis for state machine definitions.
// Checks are collect-all: one pass reports every problem, so a user never
// fixes errors one at a time. Errors block code generation and simulation;
// warnings do not.
package validation

import (
	"github.com/fsmkit/go-fsmkit/model"
)

// Report contains the result of validation.
type Report struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
	Summary  Summary `json:"summary"`
}

// Issue represents a single validation finding.
type Issue struct {
	Severity   string   `json:"severity"` // "error" or "warning"
	Category   string   `json:"category"` // "duplicate", "dangling", "choice", ...
	Message    string   `json:"message"`
	Location   []string `json:"location,omitempty"` // affected identifiers
	Suggestion string   `json:"suggestion,omitempty"`
}

// Summary provides an overview of the validated machine.
type Summary struct {
	States      int `json:"states"`
	Choices     int `json:"choices"`
	Transitions int `json:"transitions"`
	Timers      int `json:"timers"`
	Errors      int `json:"errors"`
	Warnings    int `json:"warnings"`
}

// Validator performs validation checks against one definition.
type Validator struct {
	def    *model.Definition
	report *Report
}

// NewValidator creates a validator for a definition.
func NewValidator(def *model.Definition) *Validator {
	return &Validator{
		def: def,
		report: &Report{
			Valid: true,
			Summary: Summary{
				States:      len(def.States),
				Choices:     len(def.Choices),
				Transitions: len(def.Transitions),
				Timers:      len(def.Timers),
			},
		},
	}
}

// Validate runs all checks and returns the collected report. Checks run in a
// fixed order and never stop early, so issue order is deterministic.
func (v *Validator) Validate() *Report {
	v.checkIdentifiers()
	v.checkDuplicates()
	v.checkInitial()
	v.checkTransitions()
	v.checkChoices()
	v.checkChoiceCycles()
	v.checkTimers()
	v.checkReachability()

	v.report.Valid = len(v.report.Errors) == 0
	v.report.Summary.Errors = len(v.report.Errors)
	v.report.Summary.Warnings = len(v.report.Warnings)
	return v.report
}

// Validate runs all checks against a definition.
func Validate(def *model.Definition) *Report {
	return NewValidator(def).Validate()
}

// AddError adds an error issue.
func (v *Validator) AddError(category, message string, location []string, suggestion string) {
	v.report.Errors = append(v.report.Errors, Issue{
		Severity:   "error",
		Category:   category,
		Message:    message,
		Location:   location,
		Suggestion: suggestion,
	})
}

// AddWarning adds a warning issue.
func (v *Validator) AddWarning(category, message string, location []string, suggestion string) {
	v.report.Warnings = append(v.report.Warnings, Issue{
		Severity:   "warning",
		Category:   category,
		Message:    message,
		Location:   location,
		Suggestion: suggestion,
	})
}
