package result

import "github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/chunk"

// Result is a single retrieval hit.
type Result struct {
	chunk chunk.Chunk
	score float64
}

// New creates a retrieval result.
func New(c chunk.Chunk, score float64) Result {
	return Result{chunk: c, score: score}
}

// Chunk returns the matched chunk.
func (r Result) Chunk() chunk.Chunk { return r.chunk }

// Score returns the similarity score; higher is closer.
func (r Result) Score() float64 { return r.score }

// Text returns the matched chunk text.
func (r Result) Text() string { return r.chunk.Text() }

// Chunks returns the chunks of the given results, in order.
func Chunks(results []Result) []chunk.Chunk {
	out := make([]chunk.Chunk, len(results))
	for i, r := range results {
		out[i] = r.chunk
	}
	return out
}
