package featureflow

import (
	"fmt"
	"sort"
)

// Graph is the compiled DAG of Nodes for one run, component E of the
// design. Keys are feature field names plus, for every stored feature, the
// two synthetic entries "<key>_encoder" and "<key>_writer".
type Graph struct {
	nodes map[string]*Node
	// order records insertion order so Process/pruning iterate
	// deterministically instead of over Go's randomized map order.
	order []string
	// keep marks nodes that must survive dead-node pruning even if they end
	// up leaves with no listeners: stored feature extractors, encoders and
	// data writers, and the root of a partial graph being fetched.
	keep map[*Node]bool
}

// NewGraph returns an empty Graph ready for Feature compilation to populate.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		keep:  make(map[*Node]bool),
	}
}

// Get returns the node registered under key, if any.
func (g *Graph) Get(key string) (*Node, bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// Set registers n under key, replacing any node already registered there.
// A key keeps its first position in the insertion order, so setting the same
// key twice does not duplicate it; callers that must not replace an
// existing node check Get first, as buildExtractor does.
func (g *Graph) Set(key string, n *Node) {
	if _, exists := g.nodes[key]; !exists {
		g.order = append(g.order, key)
	}
	g.nodes[key] = n
}

// Keep marks n as required to survive dead-node pruning regardless of
// whether it ends up a leaf.
func (g *Graph) Keep(n *Node) {
	g.keep[n] = true
}

// Roots returns the keys of every node with no upstream dependencies.
func (g *Graph) Roots() map[string]*Node {
	roots := make(map[string]*Node)
	for _, k := range g.order {
		n := g.nodes[k]
		if n.IsRoot() {
			roots[k] = n
		}
	}
	return roots
}

// Leaves returns the keys of every node with no downstream listeners.
func (g *Graph) Leaves() map[string]*Node {
	leaves := make(map[string]*Node)
	for _, k := range g.order {
		n := g.nodes[k]
		if n.IsLeaf() {
			leaves[k] = n
		}
	}
	return leaves
}

// PruneDeadNodes walks from the leaves upward, removing any node that is
// both a leaf and not marked Keep, transitively until a fixed point — the
// §4.E "dead-node pruning" pass. This guarantees unstored leaf computations
// are never instantiated during a run.
func (g *Graph) PruneDeadNodes() {
	for {
		var dead []string
		for _, k := range g.order {
			n, ok := g.nodes[k]
			if !ok {
				continue
			}
			if n.IsLeaf() && !g.keep[n] {
				dead = append(dead, k)
			}
		}
		if len(dead) == 0 {
			return
		}
		for _, k := range dead {
			n := g.nodes[k]
			n.disconnect()
			delete(g.nodes, k)
			delete(g.keep, n)
		}
		live := g.order[:0]
		for _, k := range g.order {
			if _, ok := g.nodes[k]; ok {
				live = append(live, k)
			}
		}
		g.order = live
	}
}

// Process runs the execution protocol of §4.E: validates kwargs cover every
// root, opens every node's scoped lifetime, then interleaves each root
// producer round-robin, draining the resulting chunk cascades depth-first,
// until every root is exhausted.
func (g *Graph) Process(kwargs map[string]interface{}) error {
	roots := g.Roots()

	var missing []string
	for k := range roots {
		if _, ok := kwargs[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing %v", ErrMissingRoots, missing)
	}

	for _, k := range g.order {
		if err := g.nodes[k].open(); err != nil {
			return fmt.Errorf("featureflow: opening node %q: %w", k, err)
		}
	}
	defer func() {
		for _, k := range g.order {
			if n, ok := g.nodes[k]; ok {
				_ = n.close()
			}
		}
	}()

	rootKeys := make([]string, 0, len(roots))
	for k := range roots {
		rootKeys = append(rootKeys, k)
	}
	sort.Strings(rootKeys)

	producers := make([]*rootProducer, 0, len(rootKeys))
	for _, k := range rootKeys {
		rp, err := newRootProducer(roots[k], kwargs[k])
		if err != nil {
			return fmt.Errorf("featureflow: root %q: %w", k, err)
		}
		producers = append(producers, rp)
	}

	for len(producers) > 0 {
		remaining := producers[:0]
		for _, rp := range producers {
			more, err := rp.step()
			if err != nil {
				return err
			}
			if more {
				remaining = append(remaining, rp)
			}
		}
		producers = remaining
	}

	return nil
}
