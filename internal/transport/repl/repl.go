// Package repl runs the line-oriented question loop.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/search/result"
	queryuc "github.com/aronetommaso/Fanta-Calcio-Agent/internal/usecase/query"
)

// NoMatchesMessage is printed when retrieval finds nothing.
const NoMatchesMessage = "no matching documents"

// Asker answers one question.
type Asker interface {
	Ask(ctx context.Context, question string) (queryuc.Answer, error)
}

// Config tunes the loop output.
type Config struct {
	// PreviewChars limits each retrieved chunk preview; 0 hides previews.
	PreviewChars int
	Prompt       string
}

// Loop reads one question per line until EOF, exit or quit.
type Loop struct {
	asker  Asker
	cfg    Config
	logger *zap.Logger
}

// New creates a Loop.
func New(asker Asker, cfg Config, logger *zap.Logger) *Loop {
	if cfg.Prompt == "" {
		cfg.Prompt = "User: "
	}
	return &Loop{asker: asker, cfg: cfg, logger: logger}
}

// IsExit reports whether line ends the session.
func IsExit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit":
		return true
	}
	return false
}

// Run processes questions from in and writes answers to out.
// Per-question errors are printed and the loop continues; it returns on EOF, exit words or ctx cancellation.
func (l *Loop) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if err := ctx.Err(); err != nil {
			return nil //nolint:nilerr // cancellation ends the session
		}

		fmt.Fprint(out, l.cfg.Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if IsExit(line) {
			return nil
		}
		if line == "" {
			continue
		}

		l.turn(ctx, line, out)
	}
}

func (l *Loop) turn(ctx context.Context, question string, out io.Writer) {
	ans, err := l.asker.Ask(ctx, question)
	if err != nil {
		l.logger.Warn("Question failed", zap.Int("retrieved_chunks", len(ans.Chunks)), zap.Error(err))
		l.previews(ans.Chunks, out)
		fmt.Fprintf(out, "Pipeline error: %v\n\n", err)
		return
	}

	if ans.NoMatches {
		fmt.Fprintf(out, "%s\n\n", NoMatchesMessage)
		return
	}

	l.previews(ans.Chunks, out)
	fmt.Fprintf(out, "Agent: %s\n\n", ans.Text)
}

func (l *Loop) previews(chunks []result.Result, out io.Writer) {
	if l.cfg.PreviewChars <= 0 || len(chunks) == 0 {
		return
	}
	for i, r := range chunks {
		fmt.Fprintf(out, "[%d] %s...\n", i+1, Preview(r, l.cfg.PreviewChars))
	}
	fmt.Fprintln(out)
}

// Preview returns the first n runes of the chunk text on one line.
func Preview(r result.Result, n int) string {
	runes := []rune(r.Text())
	if len(runes) > n {
		runes = runes[:n]
	}
	return strings.ReplaceAll(string(runes), "\n", " ")
}
