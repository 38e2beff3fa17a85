package repl

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/chunk"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/search/result"
	queryuc "github.com/aronetommaso/Fanta-Calcio-Agent/internal/usecase/query"
)

type scriptedAsker struct {
	answers map[string]queryuc.Answer
	errs    map[string]error
	asked   []string
}

func (s *scriptedAsker) Ask(_ context.Context, q string) (queryuc.Answer, error) {
	s.asked = append(s.asked, q)
	if err := s.errs[q]; err != nil {
		return s.answers[q], err
	}
	return s.answers[q], nil
}

func run(t *testing.T, a Asker, cfg Config, input string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, New(a, cfg, zap.NewNop()).Run(context.Background(), strings.NewReader(input), &out))
	return out.String()
}

func TestRun_AnswersUntilExit(t *testing.T) {
	a := &scriptedAsker{answers: map[string]queryuc.Answer{
		"portiere?": {
			Text:   "Rossi",
			Chunks: []result.Result{result.New(chunk.New("1", "Rossi\n(Goalkeeper)", nil, 0), 0.9)},
		},
	}}

	out := run(t, a, Config{PreviewChars: 150}, "portiere?\n\nQUIT\nnever asked\n")

	assert.Equal(t, []string{"portiere?"}, a.asked)
	assert.Contains(t, out, "[1] Rossi (Goalkeeper)...")
	assert.Contains(t, out, "Agent: Rossi")
}

func TestRun_NoMatches(t *testing.T) {
	a := &scriptedAsker{answers: map[string]queryuc.Answer{"q": {NoMatches: true}}}
	out := run(t, a, Config{}, "q\n")
	assert.Contains(t, out, NoMatchesMessage)
	assert.NotContains(t, out, "Agent:")
}

func TestRun_ErrorContinues(t *testing.T) {
	a := &scriptedAsker{
		errs:    map[string]error{"bad": errors.New("graph failed")},
		answers: map[string]queryuc.Answer{"good": {Text: "ok"}},
	}
	out := run(t, a, Config{}, "bad\ngood\nexit\n")
	assert.Contains(t, out, "Pipeline error: graph failed")
	assert.Contains(t, out, "Agent: ok")
}

func TestRun_EOFEnds(t *testing.T) {
	a := &scriptedAsker{}
	run(t, a, Config{}, "")
	assert.Empty(t, a.asked)
}

func TestRun_CanceledContext(t *testing.T) {
	a := &scriptedAsker{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	require.NoError(t, New(a, Config{}, zap.NewNop()).Run(ctx, strings.NewReader("q\n"), &out))
	assert.Empty(t, a.asked)
}

func TestIsExit(t *testing.T) {
	for _, s := range []string{"exit", "EXIT", " Quit ", "quit"} {
		assert.True(t, IsExit(s), s)
	}
	for _, s := range []string{"", "exiting", "q"} {
		assert.False(t, IsExit(s), s)
	}
}

func TestPreview(t *testing.T) {
	r := result.New(chunk.New("1", "Maripán è in campo", nil, 0), 1)
	assert.Equal(t, "Maripán", Preview(r, 7))
	assert.Equal(t, "Maripán è in campo", Preview(r, 150))
}

func TestRun_ErrorStillShowsRetrievedChunks(t *testing.T) {
	a := &scriptedAsker{
		answers: map[string]queryuc.Answer{
			"portiere?": {Chunks: []result.Result{result.New(chunk.New("1", "Rossi (Goalkeeper)", nil, 0), 0.9)}},
		},
		errs: map[string]error{"portiere?": errors.New("generator: groq 500")},
	}

	out := run(t, a, Config{PreviewChars: 150}, "portiere?\n")

	assert.Contains(t, out, "[1] Rossi (Goalkeeper)...")
	assert.Contains(t, out, "Pipeline error: generator: groq 500")
	assert.NotContains(t, out, "Agent:")
}
