package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/document"
)

func reconstruct(chunks []Chunk, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c.Text())
			continue
		}
		b.WriteString(string([]rune(c.Text())[overlap:]))
	}
	return b.String()
}

func TestSplit_TenThousandChars(t *testing.T) {
	text := strings.Repeat("abcdefghij", 1000)
	doc := document.New(text, map[string]string{document.MetaSource: "scraper_sky"})

	chunks, err := Split(doc, 3000, 200)
	require.NoError(t, err)

	// Windows start at 0, 2800, 5600, 8400; the last ends at 10000.
	require.Len(t, chunks, 4)
	assert.Equal(t, text[0:3000], chunks[0].Text())
	assert.Equal(t, text[2800:5800], chunks[1].Text())
	assert.Equal(t, text[5600:8600], chunks[2].Text())
	assert.Equal(t, text[8400:10000], chunks[3].Text())
	assert.Equal(t, text, reconstruct(chunks, 200))

	for i, c := range chunks {
		assert.Equal(t, i, c.Index())
		assert.Equal(t, "scraper_sky", c.Metadata()[document.MetaSource])
		assert.NotEmpty(t, c.ID())
	}
}

func TestSplit_Properties(t *testing.T) {
	cases := []struct {
		name     string
		n        int
		maxChars int
		overlap  int
	}{
		{"exact fit", 3000, 3000, 200},
		{"one past", 3001, 3000, 200},
		{"short", 10, 3000, 200},
		{"small windows", 97, 10, 3},
		{"no overlap", 25, 10, 0},
		{"max overlap", 20, 5, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := strings.Repeat("x", tc.n)
			chunks, err := Split(document.New(text, nil), tc.maxChars, tc.overlap)
			require.NoError(t, err)

			assert.Equal(t, Count(tc.n, tc.maxChars, tc.overlap), len(chunks))
			for _, c := range chunks {
				assert.NotEmpty(t, c.Text())
				assert.LessOrEqual(t, utf8.RuneCountInString(c.Text()), tc.maxChars)
			}
			assert.Equal(t, text, reconstruct(chunks, tc.overlap))
		})
	}
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("è", 12)
	chunks, err := Split(document.New(text, nil), 5, 1)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("è", 5), chunks[0].Text())
	assert.Equal(t, text, reconstruct(chunks, 1))
}

func TestSplit_PreservesWhitespace(t *testing.T) {
	text := "Rossi\n\n  Bianchi \t"
	chunks, err := Split(document.New(text, nil), 6, 2)
	require.NoError(t, err)
	assert.Equal(t, text, reconstruct(chunks, 2))
}

func TestSplit_EmptyDocument(t *testing.T) {
	chunks, err := Split(document.New("", nil), 3000, 200)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_InvalidParameters(t *testing.T) {
	doc := document.New("text", nil)
	for _, p := range [][2]int{{0, 0}, {-1, 0}, {10, 10}, {10, 11}, {10, -1}} {
		_, err := Split(doc, p[0], p[1])
		assert.ErrorIs(t, err, ErrInvalidSplit, "maxChars=%d overlap=%d", p[0], p[1])
	}
}

func TestCount(t *testing.T) {
	assert.Equal(t, 0, Count(0, 3000, 200))
	assert.Equal(t, 1, Count(1, 3000, 200))
	assert.Equal(t, 1, Count(3000, 3000, 200))
	assert.Equal(t, 2, Count(3001, 3000, 200))
	assert.Equal(t, 4, Count(10000, 3000, 200))
}

func TestTexts(t *testing.T) {
	chunks := []Chunk{New("a", "one", nil, 0), New("b", "two", nil, 1)}
	assert.Equal(t, []string{"one", "two"}, Texts(chunks))
}
