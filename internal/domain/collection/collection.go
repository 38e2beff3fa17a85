package collection

import (
	"fmt"
	"regexp"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Metric is the similarity function used to rank stored vectors.
type Metric string

const (
	// MetricCosine ranks by cosine similarity (default).
	MetricCosine Metric = "cosine"
	// MetricDot ranks by raw dot product.
	MetricDot Metric = "dot"
	// MetricEuclidean ranks by negated euclidean distance.
	MetricEuclidean Metric = "euclidean"
)

// IsValid checks if the metric is supported.
func (m Metric) IsValid() bool {
	return m == MetricCosine || m == MetricDot || m == MetricEuclidean
}

// Collection is a named set of vectors of one fixed dimension (immutable value object).
type Collection struct {
	name      string
	vectorDim int
	metric    Metric
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("collection name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("collection name must be alphanumeric with underscores and hyphens")
	}
	return nil
}

// New validates and creates a Collection.
// Name: ^[a-zA-Z0-9_-]+$, 1-64 chars. VectorDim: > 0. Empty metric means cosine.
func New(name string, vectorDim int, metric Metric) (Collection, error) {
	if metric == "" {
		metric = MetricCosine
	}
	if !metric.IsValid() {
		return Collection{}, fmt.Errorf("invalid distance metric: %q", metric)
	}
	if err := validateName(name); err != nil {
		return Collection{}, err
	}
	if vectorDim <= 0 {
		return Collection{}, fmt.Errorf("vector dimension must be positive")
	}
	return Collection{name: name, vectorDim: vectorDim, metric: metric}, nil
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// VectorDim returns the vector dimension.
func (c Collection) VectorDim() int { return c.vectorDim }

// Metric returns the distance metric.
func (c Collection) Metric() Metric { return c.metric }
