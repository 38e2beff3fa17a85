package chunk

import "maps"

// Chunk is a contiguous window of a document (immutable value object).
type Chunk struct {
	id       string
	text     string
	metadata map[string]string
	index    int
}

// New creates a Chunk. The metadata map is copied.
func New(id, text string, metadata map[string]string, index int) Chunk {
	var meta map[string]string
	if metadata != nil {
		meta = maps.Clone(metadata)
	}
	return Chunk{id: id, text: text, metadata: meta, index: index}
}

// ID returns the chunk identifier.
func (c Chunk) ID() string { return c.id }

// Text returns the chunk text.
func (c Chunk) Text() string { return c.text }

// Metadata returns the metadata inherited from the document.
func (c Chunk) Metadata() map[string]string { return c.metadata }

// Index returns the position of the chunk within its document.
func (c Chunk) Index() int { return c.index }

// Texts returns the text of every chunk, in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.text
	}
	return out
}
