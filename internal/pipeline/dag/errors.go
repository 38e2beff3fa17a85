package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidGraph is returned by Compile for structural problems.
	ErrInvalidGraph = errors.New("invalid graph")
	// ErrUnknownNode is returned when initial inputs name a node the graph does not have.
	ErrUnknownNode = errors.New("unknown node")
	// ErrStop ends a run cleanly after the node that returned it.
	ErrStop = errors.New("pipeline stopped")
)

// CycleError reports the nodes that could not be ordered.
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: cycle among nodes [%s]", ErrInvalidGraph.Error(), strings.Join(e.Nodes, ", "))
}

func (e *CycleError) Unwrap() error { return ErrInvalidGraph }

// NodeError wraps a stage failure with the node name.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }
