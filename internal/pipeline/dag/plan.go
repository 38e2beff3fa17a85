package dag

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"
)

// Plan is a compiled, immutable graph. It is safe for concurrent Run calls.
type Plan struct {
	order    []node
	index    map[string]int
	incoming map[string][]Edge
	logger   *zap.Logger
	observe  func(node, status string, d time.Duration)
}

// Result holds every produced output keyed by node name.
type Result struct {
	Outputs map[string]any
	// StoppedAt names the node that returned ErrStop, if any.
	StoppedAt string
}

// Order returns the node names in execution order.
func (p *Plan) Order() []string {
	names := make([]string, len(p.order))
	for i, n := range p.order {
		names[i] = n.name
	}
	return names
}

// Run executes the nodes in order. Edge values override initial inputs with the same key.
// On a stage failure it returns the outputs produced so far with a *NodeError.
func (p *Plan) Run(ctx context.Context, initial map[string]Inputs) (Result, error) {
	for name := range initial {
		if _, ok := p.index[name]; !ok {
			return Result{}, fmt.Errorf("%w: %q", ErrUnknownNode, name)
		}
	}

	res := Result{Outputs: make(map[string]any, len(p.order))}

	for _, n := range p.order {
		if err := ctx.Err(); err != nil {
			return res, &NodeError{Node: n.name, Err: err}
		}

		in := make(Inputs, len(initial[n.name])+len(p.incoming[n.name]))
		maps.Copy(in, initial[n.name])
		for _, e := range p.incoming[n.name] {
			v, err := edgeValue(e, res.Outputs[e.From])
			if err != nil {
				return res, &NodeError{Node: n.name, Err: err}
			}
			in[e.ToKey] = v
		}

		start := time.Now()
		out, err := n.stage.Run(ctx, in)
		elapsed := time.Since(start)

		switch {
		case err == nil:
			res.Outputs[n.name] = out
			p.record(n.name, "ok", elapsed)
		case errors.Is(err, ErrStop):
			res.Outputs[n.name] = out
			res.StoppedAt = n.name
			p.record(n.name, "stopped", elapsed)
			return res, nil
		default:
			p.record(n.name, "error", elapsed)
			return res, &NodeError{Node: n.name, Err: err}
		}
	}

	return res, nil
}

func (p *Plan) record(name, status string, d time.Duration) {
	p.logger.Debug("Pipeline node finished",
		zap.String("node", name),
		zap.String("status", status),
		zap.Duration("duration", d),
	)
	if p.observe != nil {
		p.observe(name, status, d)
	}
}

func edgeValue(e Edge, out any) (any, error) {
	if e.FromKey == "" {
		return out, nil
	}
	switch m := out.(type) {
	case map[string]any:
		if v, ok := m[e.FromKey]; ok {
			return v, nil
		}
	case Inputs:
		if v, ok := m[e.FromKey]; ok {
			return v, nil
		}
	default:
		return nil, fmt.Errorf("edge %s.%s: output is %T, not a map", e.From, e.FromKey, out)
	}
	return nil, fmt.Errorf("edge %s.%s: key missing from output", e.From, e.FromKey)
}

// WithTimeout bounds each invocation of stage by d. d <= 0 returns stage unchanged.
func WithTimeout(stage Stage, d time.Duration) Stage {
	if d <= 0 {
		return stage
	}
	return StageFunc(func(ctx context.Context, in Inputs) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		out, err := stage.Run(ctx, in)
		if err == nil && ctx.Err() != nil {
			return nil, fmt.Errorf("stage exceeded %s: %w", d, ctx.Err())
		}
		return out, err
	})
}
