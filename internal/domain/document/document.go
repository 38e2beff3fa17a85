package document

import "maps"

// MetaSource is the metadata key naming where a document came from.
const MetaSource = "source"

// Document is parsed source text with its metadata (immutable value object).
type Document struct {
	text     string
	metadata map[string]string
}

// New creates a Document. The metadata map is copied.
func New(text string, metadata map[string]string) Document {
	return Document{text: text, metadata: cloneStringMap(metadata)}
}

// Text returns the full document text.
func (d Document) Text() string { return d.text }

// Metadata returns a copy of the metadata.
func (d Document) Metadata() map[string]string { return cloneStringMap(d.metadata) }

// Source returns the "source" metadata value, if any.
func (d Document) Source() string { return d.metadata[MetaSource] }

// IsEmpty reports whether the document has no text.
func (d Document) IsEmpty() bool { return d.text == "" }

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
