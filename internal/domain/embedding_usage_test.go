package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTurnUsage_RecordsThroughContext(t *testing.T) {
	ctx, u := WithTurnUsage(context.Background())

	TurnUsageFrom(ctx).RecordEmbedding(12)
	TurnUsageFrom(ctx).RecordEmbedding(3)
	TurnUsageFrom(ctx).RecordGeneration(40)

	assert.Equal(t, 2, u.EmbeddingCalls)
	assert.Equal(t, 15, u.EmbeddingTokens)
	assert.Equal(t, 40, u.GenerationTokens)
}

func TestTurnUsage_NilSafe(t *testing.T) {
	u := TurnUsageFrom(context.Background())
	assert.Nil(t, u)
	assert.NotPanics(t, func() {
		u.RecordEmbedding(1)
		u.RecordGeneration(1)
	})
}
