package collection

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Valid(t *testing.T) {
	c, err := New("serie_a_matches", 768, "")
	require.NoError(t, err)

	assert.Equal(t, "serie_a_matches", c.Name())
	assert.Equal(t, 768, c.VectorDim())
	assert.Equal(t, MetricCosine, c.Metric())
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		col    string
		dim    int
		metric Metric
	}{
		{"empty name", "", 768, MetricCosine},
		{"bad chars", "serie a", 768, MetricCosine},
		{"too long", strings.Repeat("a", 65), 768, MetricCosine},
		{"zero dim", "c", 0, MetricCosine},
		{"negative dim", "c", -3, MetricCosine},
		{"unknown metric", "c", 3, Metric("manhattan")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.col, tc.dim, tc.metric)
			assert.Error(t, err)
		})
	}
}

func TestMetric_IsValid(t *testing.T) {
	assert.True(t, MetricCosine.IsValid())
	assert.True(t, MetricDot.IsValid())
	assert.True(t, MetricEuclidean.IsValid())
	assert.False(t, Metric("").IsValid())
}
