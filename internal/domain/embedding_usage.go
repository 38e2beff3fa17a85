package domain

import "context"

type usageKey struct{}

// TurnUsage accumulates provider usage for one question.
// The caller attaches it to the context; embedding and generation layers record into it.
type TurnUsage struct {
	EmbeddingTokens  int
	EmbeddingCalls   int
	GenerationTokens int
}

// WithTurnUsage returns a context carrying a fresh usage accumulator.
func WithTurnUsage(ctx context.Context) (context.Context, *TurnUsage) {
	u := &TurnUsage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// TurnUsageFrom returns the accumulator or nil.
func TurnUsageFrom(ctx context.Context) *TurnUsage {
	u, _ := ctx.Value(usageKey{}).(*TurnUsage)
	return u
}

// RecordEmbedding counts one provider call. Safe on a nil receiver.
func (u *TurnUsage) RecordEmbedding(tokens int) {
	if u == nil {
		return
	}
	u.EmbeddingCalls++
	u.EmbeddingTokens += tokens
}

// RecordGeneration adds completion tokens. Safe on a nil receiver.
func (u *TurnUsage) RecordGeneration(tokens int) {
	if u == nil {
		return
	}
	u.GenerationTokens += tokens
}
