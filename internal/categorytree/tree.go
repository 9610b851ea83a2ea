// Package categorytree models the category forest as an arena of nodes keyed
// by id. Parent and child links are ids, never pointers, so walks go through
// map lookups and a cycle in stored data cannot make them loop forever.
package categorytree

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// ColorFactor is applied per RGB channel when a child inherits a color.
	ColorFactor = 1.1
	// FallbackColor is used when no category in the chain has a color.
	FallbackColor = "#fafafa"
)

// Node is the part of a category the tree needs.
type Node struct {
	ID       string
	Name     string
	Color    string
	ParentID *string
}

// Tree is an immutable snapshot of the category forest.
type Tree struct {
	nodes    map[string]Node
	children map[string][]string
}

// New builds a tree from a flat list of nodes. Children are kept in name order.
func New(nodes []Node) *Tree {
	t := &Tree{
		nodes:    make(map[string]Node, len(nodes)),
		children: make(map[string][]string),
	}
	for _, n := range nodes {
		t.nodes[n.ID] = n
	}
	for _, n := range nodes {
		if n.ParentID != nil {
			t.children[*n.ParentID] = append(t.children[*n.ParentID], n.ID)
		}
	}
	for parent, ids := range t.children {
		sort.Slice(ids, func(i, j int) bool {
			return t.nodes[ids[i]].Name < t.nodes[ids[j]].Name
		})
		t.children[parent] = ids
	}
	return t
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Has reports whether id is part of the tree.
func (t *Tree) Has(id string) bool {
	_, ok := t.nodes[id]
	return ok
}

// Get returns the node with the given id.
func (t *Tree) Get(id string) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// parent returns the parent id of id if the parent exists in the tree.
func (t *Tree) parent(id string) (string, bool) {
	n, ok := t.nodes[id]
	if !ok || n.ParentID == nil {
		return "", false
	}
	if _, ok := t.nodes[*n.ParentID]; !ok {
		return "", false
	}
	return *n.ParentID, true
}

// ancestors returns the chain from id up to its root, self first.
func (t *Tree) ancestors(id string) []string {
	if !t.Has(id) {
		return nil
	}
	chain := []string{id}
	seen := map[string]bool{id: true}
	for cur := id; ; {
		p, ok := t.parent(cur)
		if !ok || seen[p] {
			return chain
		}
		seen[p] = true
		chain = append(chain, p)
		cur = p
	}
}

// Depth is the distance from id to its root; a root has depth 0.
func (t *Tree) Depth(id string) int {
	chain := t.ancestors(id)
	if len(chain) == 0 {
		return 0
	}
	return len(chain) - 1
}

// Root returns the top-level ancestor of id (id itself for a root).
func (t *Tree) Root(id string) string {
	chain := t.ancestors(id)
	if len(chain) == 0 {
		return id
	}
	return chain[len(chain)-1]
}

// Subtree returns id followed by all of its descendants, depth-first.
// Each id appears once; unknown ids yield an empty slice.
func (t *Tree) Subtree(id string) []string {
	if !t.Has(id) {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(cur string) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		out = append(out, cur)
		for _, child := range t.children[cur] {
			walk(child)
		}
	}
	walk(id)
	return out
}

// WouldCycle reports whether making newParent the parent of id would create
// a cycle, i.e. newParent is id or one of its descendants.
func (t *Tree) WouldCycle(id, newParent string) bool {
	if id == newParent {
		return true
	}
	for _, d := range t.Subtree(id) {
		if d == newParent {
			return true
		}
	}
	return false
}

// ResolvedColor returns the category's own color, or the nearest colored
// ancestor's color lightened once per generation. An uncolored chain starts
// from FallbackColor at its root.
func (t *Tree) ResolvedColor(id string) string {
	chain := t.ancestors(id)
	if len(chain) == 0 {
		return FallbackColor
	}
	c, generations := FallbackColor, len(chain)-1
	for i, cur := range chain {
		if own := t.nodes[cur].Color; own != "" {
			c, generations = own, i
			break
		}
	}
	for j := 0; j < generations; j++ {
		lighter, err := Lighten(c, ColorFactor)
		if err != nil {
			return FallbackColor
		}
		c = lighter
	}
	return c
}

// Lighten multiplies every channel of a #rrggbb color by factor, rounding
// down and clamping at 255.
func Lighten(hex string, factor float64) (string, error) {
	if len(hex) != 7 || hex[0] != '#' {
		return "", fmt.Errorf("invalid color %q", hex)
	}
	var b strings.Builder
	b.WriteByte('#')
	for i := 1; i < 7; i += 2 {
		v, err := strconv.ParseUint(hex[i:i+2], 16, 8)
		if err != nil {
			return "", fmt.Errorf("invalid color %q: %w", hex, err)
		}
		scaled := float64(v) * factor
		channel := 255
		if scaled <= 255 {
			channel = int(scaled)
		}
		fmt.Fprintf(&b, "%02x", channel)
	}
	return b.String(), nil
}
