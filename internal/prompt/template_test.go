package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/chunk"
)

func chunks(texts ...string) []chunk.Chunk {
	out := make([]chunk.Chunk, len(texts))
	for i, t := range texts {
		out[i] = chunk.New("", t, nil, i)
	}
	return out
}

func TestRender_ScalarAndLoop(t *testing.T) {
	got, err := Render(
		"Q: {{.user_prompt}}\n{{range $i, $c := .chunks}}[{{loopIndex $i}}] {{$c.Text}}\n{{end}}",
		map[string]any{"user_prompt": "Chi gioca?", "chunks": chunks("A", "B")},
	)
	require.NoError(t, err)
	assert.Equal(t, "Q: Chi gioca?\n[1] A\n[2] B\n", got)
}

func TestRender_MissingBinding(t *testing.T) {
	_, err := Render("Q: {{.user_prompt}}", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_prompt")
}

func TestRender_ParseError(t *testing.T) {
	_, err := Render("{{range .chunks}}", nil)
	assert.Error(t, err)
}

func TestRender_EmptyList(t *testing.T) {
	got, err := Render("[{{range .chunks}}{{.Text}}{{end}}]", map[string]any{"chunks": []chunk.Chunk{}})
	require.NoError(t, err)
	assert.Equal(t, "[]", got)
}

func TestDefaultUser(t *testing.T) {
	got, err := DefaultUser().Render(map[string]any{
		BindUserPrompt: "Formazione Juventus?",
		BindChunks:     chunks("Rossi (Goalkeeper)", "Bianchi (Defender)"),
	})
	require.NoError(t, err)

	start := strings.Index(got, "--- CONTEXT START ---")
	rossi := strings.Index(got, "Rossi (Goalkeeper)")
	bianchi := strings.Index(got, "Bianchi (Defender)")
	end := strings.Index(got, "--- CONTEXT END ---")
	assert.True(t, start < rossi && rossi < bianchi && bianchi < end, "chunk order not preserved")
	assert.Contains(t, got, "Question: Formazione Juventus?")
	assert.Contains(t, got, "Answer in Italian.")
}

func TestDefaultRetrieval(t *testing.T) {
	got, err := DefaultRetrieval().Render(map[string]any{BindChunks: chunks("first", "second")})
	require.NoError(t, err)
	assert.Equal(t,
		"SOURCE DOCUMENTS FOUND IN PDF:\n--- DOCUMENT 1 ---\nfirst\n--- DOCUMENT 2 ---\nsecond\n--- END OF CONTEXT ---",
		got)
}

func TestLoadOrDefault(t *testing.T) {
	def := DefaultUser()
	got, err := LoadOrDefault("", def)
	require.NoError(t, err)
	assert.Same(t, def, got)

	path := filepath.Join(t.TempDir(), "user.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("Domanda: {{.user_prompt}}"), 0o600))
	tmpl, err := LoadOrDefault(path, def)
	require.NoError(t, err)
	out, err := tmpl.Render(map[string]any{BindUserPrompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Domanda: x", out)

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "nope.tmpl"), def)
	assert.Error(t, err)
}
