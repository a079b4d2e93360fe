// Package graph exports machine definitions as plain node/edge structures
// for external layout and rendering tools. The export is deterministic and
// carries no geometry: coordinates live in a Placement produced by an
// embedding application's Layouter, and the core never interprets them.
package graph

import (
	"strings"

	"github.com/fsmkit/go-fsmkit/model"
)

// Node kinds.
const (
	KindInitial = "initial"
	KindState   = "state"
	KindChoice  = "choice"
)

// InitialID is the pseudo-node for the initial marker. Identifiers cannot
// contain brackets, so it never collides with a declared name.
const InitialID = "[*]"

// Node is one vertex of the exported graph.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	Kind  string `json:"kind"`
}

// Edge is one directed edge. Labels reproduce the source notation:
// "event [guard] / action()" for transitions, "[cond] / action()" or
// "[else]" for choice branches.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// Graph is the exported structure.
type Graph struct {
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Export builds the graph for a definition: the initial pseudo-node, states
// and choices in declaration order, then edges in declaration order (the
// initial edge first, transitions, choice branches).
func Export(def *model.Definition) *Graph {
	g := &Graph{Name: def.Name}

	g.Nodes = append(g.Nodes, Node{ID: InitialID, Kind: KindInitial})
	for _, s := range def.States {
		label := s.Description
		if label == "" {
			label = s.ID
		}
		g.Nodes = append(g.Nodes, Node{ID: s.ID, Label: label, Kind: KindState})
	}
	for _, c := range def.Choices {
		g.Nodes = append(g.Nodes, Node{ID: c.ID, Label: c.ID, Kind: KindChoice})
	}

	if def.Initial != "" {
		g.Edges = append(g.Edges, Edge{Source: InitialID, Target: def.Initial})
	}
	for _, t := range def.Transitions {
		g.Edges = append(g.Edges, Edge{
			Source: t.Source,
			Target: t.Target,
			Label:  transitionLabel(t),
		})
	}
	for _, c := range def.Choices {
		for _, b := range c.Branches {
			g.Edges = append(g.Edges, Edge{
				Source: c.ID,
				Target: b.Target,
				Label:  branchLabel(b),
			})
		}
	}
	return g
}

func transitionLabel(t model.Transition) string {
	var parts []string
	if t.Event != "" {
		parts = append(parts, t.Event)
	}
	if t.Guard != "" {
		parts = append(parts, "["+t.Guard+"]")
	}
	if len(t.Actions) > 0 {
		parts = append(parts, "/ "+strings.Join(model.ActionStrings(t.Actions), ", "))
	}
	return strings.Join(parts, " ")
}

func branchLabel(b model.Branch) string {
	var parts []string
	if b.Else {
		parts = append(parts, "[else]")
	} else {
		parts = append(parts, "["+b.Cond+"]")
	}
	if len(b.Actions) > 0 {
		parts = append(parts, "/ "+strings.Join(model.ActionStrings(b.Actions), ", "))
	}
	return strings.Join(parts, " ")
}
