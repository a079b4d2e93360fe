// Package traceproof attests recorded runs with zero-knowledge proofs. A
// Groth16 proof shows that a step sequence is a valid structural run of a
// published machine: initial state, final state, and step count are public,
// while the events and the path through the machine stay private. Guard
// evaluation is host-side behavior and outside the proven relation.
package traceproof

import (
	"fmt"
	"sort"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/fsmkit/go-fsmkit/model"
	"github.com/fsmkit/go-fsmkit/tracelog"
)

// Prover manages circuit compilation, setup, and proof generation. Circuits
// are registered per (machine, capacity) pair, since the transition table is
// baked into the constraint system.
type Prover struct {
	mu       sync.RWMutex
	circuits map[string]*CompiledCircuit
	curve    ecc.ID
}

// CompiledCircuit holds one compiled constraint system with its keys.
type CompiledCircuit struct {
	Machine      string
	MaxSteps     int
	CS           constraint.ConstraintSystem
	ProvingKey   groth16.ProvingKey
	VerifyingKey groth16.VerifyingKey
	Constraints  int
}

// Proof is a generated attestation with the public witness needed to verify
// it.
type Proof struct {
	Machine     string
	MaxSteps    int
	Proof       groth16.Proof
	Public      witness.Witness
	Constraints int
}

// NewProver creates a prover on BN254.
func NewProver() *Prover {
	return &Prover{
		circuits: make(map[string]*CompiledCircuit),
		curve:    ecc.BN254,
	}
}

func circuitKey(machine string, maxSteps int) string {
	return fmt.Sprintf("%s@%d", machine, maxSteps)
}

// Register compiles the run circuit for a definition at the given capacity
// and runs the trusted setup. Registering the same pair again replaces the
// previous circuit.
func (p *Prover) Register(def *model.Definition, maxSteps int) (*CompiledCircuit, error) {
	if def == nil {
		return nil, fmt.Errorf("register: nil definition")
	}
	circuit, err := NewRunCircuit(def, maxSteps)
	if err != nil {
		return nil, err
	}

	cs, err := frontend.Compile(p.curve.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("circuit compilation failed: %w", err)
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return nil, fmt.Errorf("setup failed: %w", err)
	}

	cc := &CompiledCircuit{
		Machine:      def.Name,
		MaxSteps:     maxSteps,
		CS:           cs,
		ProvingKey:   pk,
		VerifyingKey: vk,
		Constraints:  cs.GetNbConstraints(),
	}
	p.mu.Lock()
	p.circuits[circuitKey(def.Name, maxSteps)] = cc
	p.mu.Unlock()
	return cc, nil
}

// Circuit returns a registered circuit.
func (p *Prover) Circuit(machine string, maxSteps int) (*CompiledCircuit, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cc, ok := p.circuits[circuitKey(machine, maxSteps)]
	return cc, ok
}

// ListCircuits returns the registered circuit keys, sorted.
func (p *Prover) ListCircuits() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.circuits))
	for k := range p.circuits {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Prove generates a Groth16 proof for the assignment. The machine must have
// been registered at the assignment's capacity.
func (p *Prover) Prove(machine string, assignment *RunCircuit) (*Proof, error) {
	if assignment == nil {
		return nil, fmt.Errorf("prove: nil assignment")
	}
	maxSteps := assignment.MaxSteps()
	cc, ok := p.Circuit(machine, maxSteps)
	if !ok {
		return nil, fmt.Errorf("circuit %q not registered for %d steps", machine, maxSteps)
	}

	w, err := frontend.NewWitness(assignment, p.curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("witness creation failed: %w", err)
	}
	proof, err := groth16.Prove(cc.CS, cc.ProvingKey, w)
	if err != nil {
		return nil, fmt.Errorf("proof generation failed: %w", err)
	}
	pub, err := w.Public()
	if err != nil {
		return nil, fmt.Errorf("public witness extraction failed: %w", err)
	}

	return &Proof{
		Machine:     machine,
		MaxSteps:    maxSteps,
		Proof:       proof,
		Public:      pub,
		Constraints: cc.Constraints,
	}, nil
}

// ProveRun attests a recorded run, registering the circuit on demand.
func (p *Prover) ProveRun(def *model.Definition, run *tracelog.Run, maxSteps int) (*Proof, error) {
	if def == nil {
		return nil, fmt.Errorf("prove run: nil definition")
	}
	if _, ok := p.Circuit(def.Name, maxSteps); !ok {
		if _, err := p.Register(def, maxSteps); err != nil {
			return nil, err
		}
	}
	assignment, err := WitnessFromRun(def, run, maxSteps)
	if err != nil {
		return nil, err
	}
	return p.Prove(def.Name, assignment)
}

// Verify checks a proof against the registered verifying key.
func (p *Prover) Verify(pf *Proof) error {
	if pf == nil {
		return fmt.Errorf("verify: nil proof")
	}
	cc, ok := p.Circuit(pf.Machine, pf.MaxSteps)
	if !ok {
		return fmt.Errorf("circuit %q not registered for %d steps", pf.Machine, pf.MaxSteps)
	}
	return groth16.Verify(pf.Proof, cc.VerifyingKey, pf.Public)
}
