package resolver

import (
	"container/heap"

	"github.com/aescanero/dago-workflow/pkg/domain"
)

// Order returns the instruction ids in a valid dependency order
func Order(instructions []*domain.Instruction) ([]string, error) {
	g, err := newGraph(instructions)
	if err != nil {
		return nil, err
	}
	if err := g.detectCycle(); err != nil {
		return nil, err
	}
	return g.kahn(), nil
}

// Levels groups instruction ids by dependency depth. Every instruction in a
// level depends only on instructions in earlier levels, so members of one
// level are independent of each other.
func Levels(instructions []*domain.Instruction) ([][]string, error) {
	g, err := newGraph(instructions)
	if err != nil {
		return nil, err
	}
	if err := g.detectCycle(); err != nil {
		return nil, err
	}
	if len(g.ids) == 0 {
		return nil, nil
	}

	depth := make([]int, len(g.ids))
	maxDepth := 0
	for _, id := range g.kahn() {
		u := g.index[id]
		for _, p := range g.deps[u] {
			if depth[p]+1 > depth[u] {
				depth[u] = depth[p] + 1
			}
		}
		if depth[u] > maxDepth {
			maxDepth = depth[u]
		}
	}

	levels := make([][]string, maxDepth+1)
	for i, id := range g.ids {
		levels[depth[i]] = append(levels[depth[i]], id)
	}
	return levels, nil
}

type graph struct {
	ids      []string       // input order
	index    map[string]int // id -> input position
	deps     [][]int        // u -> positions u depends on
	outgoing [][]int        // u -> positions depending on u
}

func newGraph(instructions []*domain.Instruction) (*graph, error) {
	g := &graph{
		ids:      make([]string, len(instructions)),
		index:    make(map[string]int, len(instructions)),
		deps:     make([][]int, len(instructions)),
		outgoing: make([][]int, len(instructions)),
	}

	for i, inst := range instructions {
		if _, exists := g.index[inst.ID]; exists {
			return nil, domain.Errorf(domain.ErrDuplicateInstructionID, inst.ID, "%s", inst.ID)
		}
		g.ids[i] = inst.ID
		g.index[inst.ID] = i
	}

	for i, inst := range instructions {
		seen := make(map[int]bool, len(inst.Dependencies))
		for _, dep := range inst.Dependencies {
			j, ok := g.index[dep]
			if !ok {
				return nil, domain.Errorf(domain.ErrUnknownDependency, inst.ID, "%s depends on %s", inst.ID, dep)
			}
			if seen[j] {
				continue
			}
			seen[j] = true
			g.deps[i] = append(g.deps[i], j)
			g.outgoing[j] = append(g.outgoing[j], i)
		}
	}
	return g, nil
}

// detectCycle walks each instruction's dependency chain with a visiting set.
// Nodes whose chains were fully explored are remembered so each edge is
// walked at most once.
func (g *graph) detectCycle() error {
	visiting := make([]bool, len(g.ids))
	done := make([]bool, len(g.ids))

	var walk func(u int) error
	walk = func(u int) error {
		if visiting[u] {
			return domain.CircularDependency(g.ids[u])
		}
		if done[u] {
			return nil
		}
		visiting[u] = true
		for _, v := range g.deps[u] {
			if err := walk(v); err != nil {
				return err
			}
		}
		visiting[u] = false
		done[u] = true
		return nil
	}

	for u := range g.ids {
		if err := walk(u); err != nil {
			return err
		}
	}
	return nil
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// kahn assumes the graph is acyclic
func (g *graph) kahn() []string {
	indeg := make([]int, len(g.ids))
	for u := range g.ids {
		indeg[u] = len(g.deps[u])
	}

	ready := &intMinHeap{}
	for u, d := range indeg {
		if d == 0 {
			heap.Push(ready, u)
		}
	}

	out := make([]string, 0, len(g.ids))
	for ready.Len() > 0 {
		u := heap.Pop(ready).(int)
		out = append(out, g.ids[u])
		for _, v := range g.outgoing[u] {
			indeg[v]--
			if indeg[v] == 0 {
				heap.Push(ready, v)
			}
		}
	}
	return out
}
