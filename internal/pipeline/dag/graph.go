// Package dag runs named stages in dependency order, passing outputs along keyed edges.
package dag

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Inputs are the named values a stage receives.
type Inputs map[string]any

// Stage is one unit of work in a graph.
type Stage interface {
	Run(ctx context.Context, in Inputs) (any, error)
}

// StageFunc adapts a function to Stage.
type StageFunc func(ctx context.Context, in Inputs) (any, error)

// Run calls f.
func (f StageFunc) Run(ctx context.Context, in Inputs) (any, error) { return f(ctx, in) }

// Edge feeds the output of From into the ToKey input of To.
// An empty FromKey forwards the whole output; otherwise the output must be a map holding FromKey.
type Edge struct {
	From    string
	FromKey string
	To      string
	ToKey   string
}

type node struct {
	name  string
	stage Stage
}

// Graph is a mutable builder. Compile it once and reuse the Plan.
type Graph struct {
	nodes []node
	edges []Edge
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{}
}

// AddNode appends a named stage. Validation happens in Compile.
func (g *Graph) AddNode(name string, stage Stage) *Graph {
	g.nodes = append(g.nodes, node{name: name, stage: stage})
	return g
}

// Connect forwards the whole output of from into the toKey input of to.
func (g *Graph) Connect(from, to, toKey string) *Graph {
	return g.ConnectKey(from, "", to, toKey)
}

// ConnectKey forwards output[fromKey] of from into the toKey input of to.
func (g *Graph) ConnectKey(from, fromKey, to, toKey string) *Graph {
	g.edges = append(g.edges, Edge{From: from, FromKey: fromKey, To: to, ToKey: toKey})
	return g
}

// Run compiles the graph and runs it once. A cyclic graph fails before any stage runs.
func (g *Graph) Run(ctx context.Context, initial map[string]Inputs, opts ...Option) (Result, error) {
	plan, err := g.Compile(opts...)
	if err != nil {
		return Result{}, err
	}
	return plan.Run(ctx, initial)
}

// Option configures a Plan.
type Option func(*Plan)

// WithLogger sets the logger for per-node debug output.
func WithLogger(l *zap.Logger) Option {
	return func(p *Plan) { p.logger = l }
}

// WithObserver receives the duration and status ("ok", "stopped", "error") of every node.
func WithObserver(fn func(node, status string, d time.Duration)) Option {
	return func(p *Plan) { p.observe = fn }
}

// Compile validates the graph and fixes its execution order.
// Nodes with no ordering constraint between them run in insertion order.
func (g *Graph) Compile(opts ...Option) (*Plan, error) {
	index := make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		if n.name == "" {
			return nil, fmt.Errorf("%w: node %d has empty name", ErrInvalidGraph, i)
		}
		if n.stage == nil {
			return nil, fmt.Errorf("%w: node %q has nil stage", ErrInvalidGraph, n.name)
		}
		if _, dup := index[n.name]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrInvalidGraph, n.name)
		}
		index[n.name] = i
	}

	indegree := make([]int, len(g.nodes))
	out := make([][]int, len(g.nodes))
	incoming := make(map[string][]Edge, len(g.nodes))
	for _, e := range g.edges {
		from, ok := index[e.From]
		if !ok {
			return nil, fmt.Errorf("%w: edge from unknown node %q", ErrInvalidGraph, e.From)
		}
		to, ok := index[e.To]
		if !ok {
			return nil, fmt.Errorf("%w: edge to unknown node %q", ErrInvalidGraph, e.To)
		}
		if from == to {
			return nil, fmt.Errorf("%w: self-loop on %q", ErrInvalidGraph, e.From)
		}
		if e.ToKey == "" {
			return nil, fmt.Errorf("%w: edge %s -> %s has empty target key", ErrInvalidGraph, e.From, e.To)
		}
		indegree[to]++
		out[from] = append(out[from], to)
		incoming[e.To] = append(incoming[e.To], e)
	}

	order := make([]node, 0, len(g.nodes))
	done := make([]bool, len(g.nodes))
	for len(order) < len(g.nodes) {
		next := -1
		for i := range g.nodes {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var stuck []string
			for i, n := range g.nodes {
				if !done[i] {
					stuck = append(stuck, n.name)
				}
			}
			return nil, &CycleError{Nodes: stuck}
		}
		done[next] = true
		order = append(order, g.nodes[next])
		for _, to := range out[next] {
			indegree[to]--
		}
	}

	p := &Plan{
		order:    order,
		index:    index,
		incoming: incoming,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}
