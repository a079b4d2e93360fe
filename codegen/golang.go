package codegen

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/fsmkit/go-fsmkit/model"
)

// generateGo renders the standard target: one self-contained Go source file
// holding the state and event enums, the transition table, and a Machine
// whose Dispatch reproduces the engine's semantics (declaration-order
// tie-break, choice chaining with else fallback, exit/transition/branch/
// entry action order). The output imports nothing.
func generateGo(def *model.Definition, opts Options) ([]byte, error) {
	table := BuildTable(def)
	ctx, err := buildContext(def, table, opts.PackageName)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := standardTmpl.Execute(&buf, ctx); err != nil {
		return nil, fmt.Errorf("render standard target: %w", err)
	}
	return buf.Bytes(), nil
}

var standardTmpl = template.Must(template.New("standard.go.tmpl").Parse(standardTemplate))
