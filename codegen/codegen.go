// Package codegen turns validated machine definitions into source code.
//
// Targets form a closed set: each one maps to a pure emitter in a fixed
// switch, and asking for anything else returns an *UnknownTargetError naming
// the stranger. Emitters are functions of the definition alone; they never
// see engine state.
//
// Example usage:
//
//	out, err := codegen.Generate(def, codegen.TargetStandard, codegen.Options{
//		PackageName: "trafficlight",
//	})
package codegen

import (
	"fmt"

	"github.com/fsmkit/go-fsmkit/model"
)

// Target selects an output language.
type Target string

// TargetStandard emits a self-contained Go dispatch kernel.
const TargetStandard Target = "standard"

// Targets lists every supported target in stable order.
func Targets() []Target {
	return []Target{TargetStandard}
}

// UnknownTargetError reports a target outside the supported set.
type UnknownTargetError struct {
	Target Target
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("unknown codegen target %q (supported: standard)", string(e.Target))
}

// Options configures an emitter.
type Options struct {
	// PackageName names the generated package. Defaults to a sanitized
	// lower-case form of the machine name.
	PackageName string
}

// Generate renders the definition for the given target. The definition is
// expected to have passed validation; Generate does not re-check semantics.
func Generate(def *model.Definition, target Target, opts Options) ([]byte, error) {
	if def == nil {
		return nil, fmt.Errorf("generate: nil definition")
	}

	switch target {
	case TargetStandard:
		return generateGo(def, opts)
	default:
		return nil, &UnknownTargetError{Target: target}
	}
}
