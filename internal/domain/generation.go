package domain

import "context"

// Generator turns a rendered prompt into an answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
