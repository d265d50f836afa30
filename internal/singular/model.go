// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package singular

// Composition is one node of the control app document model. Compositions
// nest to arbitrary depth via Subcompositions; the JSON decoder's
// case-insensitive field matching covers the two key spellings the API has
// been observed to emit ("subcompositions" and "Subcompositions").
type Composition struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Model           []Field       `json:"model"`
	Subcompositions []Composition `json:"subcompositions"`
}

// Field describes one controllable field of a composition. Type is a
// free-form string ("number", "checkbox", "timecontrol", ...); unrecognized
// types are treated as opaque strings by all consumers.
type Field struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

// DisplayTitle returns the best human-readable label for the field.
func (f Field) DisplayTitle() string {
	if f.Title != "" {
		return f.Title
	}
	if f.Name != "" {
		return f.Name
	}
	return f.ID
}

// Node is one flattened, addressable control target.
type Node struct {
	ID     string
	Name   string
	Fields map[string]Field
}

// Flatten walks a composition tree in pre-order and collects every node
// that is addressable: nodes lacking an id, a name, or a field list are
// silently skipped so one malformed entry never aborts discovery of the
// rest of the tree.
func Flatten(comps []Composition) []Node {
	var nodes []Node
	Walk(comps, func(c *Composition) {
		if c.ID == "" || c.Name == "" || c.Model == nil {
			return
		}
		fields := make(map[string]Field, len(c.Model))
		for _, f := range c.Model {
			if f.ID == "" {
				continue
			}
			fields[f.ID] = f
		}
		nodes = append(nodes, Node{ID: c.ID, Name: c.Name, Fields: fields})
	})
	return nodes
}

// Walk visits every composition in pre-order, including every nested
// subcomposition at any depth.
func Walk(comps []Composition, visit func(*Composition)) {
	for i := range comps {
		walkOne(&comps[i], visit)
	}
}

func walkOne(c *Composition, visit func(*Composition)) {
	visit(c)
	for i := range c.Subcompositions {
		walkOne(&c.Subcompositions[i], visit)
	}
}
