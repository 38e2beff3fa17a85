package ingest

import (
	"fmt"
	"time"
)

// State is an ingestion stage.
type State string

// Ingestion states in execution order.
const (
	StateParsing   State = "parsing"
	StateSplitting State = "splitting"
	StateEmbedding State = "embedding"
	StateStoring   State = "storing"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Error reports the stage that failed and the source being ingested.
type Error struct {
	Stage  State
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ingest %s: %s failed: %v", e.Source, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Report summarises one ingestion run, successful or not.
type Report struct {
	Source      string
	State       State
	Transitions []State
	Chunks      int
	Inserted    int
	Duration    time.Duration
}
