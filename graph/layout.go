package graph

import (
	"encoding/json"
	"fmt"
)

// Point is a coordinate in an arbitrary layout space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EdgeRoute carries optional waypoints for one edge.
type EdgeRoute struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Points []Point `json:"points"`
}

// Placement assigns coordinates to nodes and optionally routes to edges.
// Core packages pass placements through untouched; interpreting them is the
// rendering host's business.
type Placement struct {
	Positions map[string]Point `json:"positions"`
	Routes    []EdgeRoute      `json:"routes,omitempty"`
}

// Layouter computes a placement for an exported graph. Implementations live
// in embedding applications; the workbench only defines the contract.
type Layouter interface {
	Layout(g *Graph) (*Placement, error)
}

// ToJSON marshals a graph with stable indentation.
func ToJSON(g *Graph) ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// FromJSON parses an exported graph.
func FromJSON(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("invalid graph JSON: %w", err)
	}
	return &g, nil
}

// PlacementToJSON marshals a placement with stable indentation.
func PlacementToJSON(p *Placement) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// PlacementFromJSON parses a placement.
func PlacementFromJSON(data []byte) (*Placement, error) {
	var p Placement
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid placement JSON: %w", err)
	}
	return &p, nil
}
