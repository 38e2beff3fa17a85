package chunk

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/document"
)

// ErrInvalidSplit signals splitter parameters outside 0 <= overlap < maxChars.
var ErrInvalidSplit = errors.New("invalid split parameters")

// Split cuts a document into windows of at most maxChars runes.
// Each window starts maxChars-overlap runes after the previous one and the last
// window ends exactly at the end of the text. Text is kept verbatim, so dropping
// the overlapping prefix of every chunk after the first reconstructs the document.
func Split(doc document.Document, maxChars, overlap int) ([]Chunk, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("max chars must be positive, got %d: %w", maxChars, ErrInvalidSplit)
	}
	if overlap < 0 || overlap >= maxChars {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d: %w", maxChars, overlap, ErrInvalidSplit)
	}

	runes := []rune(doc.Text())
	if len(runes) == 0 {
		return nil, nil
	}

	meta := doc.Metadata()
	step := maxChars - overlap
	chunks := make([]Chunk, 0, Count(len(runes), maxChars, overlap))

	for start := 0; ; start += step {
		end := min(start+maxChars, len(runes))
		chunks = append(chunks, New(uuid.NewString(), string(runes[start:end]), meta, len(chunks)))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// Count returns how many chunks Split yields for a text of n runes.
func Count(n, maxChars, overlap int) int {
	if n <= 0 {
		return 0
	}
	if n <= maxChars {
		return 1
	}
	step := maxChars - overlap
	return (n - overlap + step - 1) / step
}
