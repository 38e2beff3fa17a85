package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/chunk"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/collection"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/search/result"
)

type point struct {
	id     string
	chunk  chunk.Chunk
	vector []float32
	norm   float64
}

type bucket struct {
	col    collection.Collection
	points []point
}

// Store is an in-memory vector index. Contents live for the process lifetime.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*bucket
}

// New creates an empty Store.
func New() *Store {
	return &Store{collections: make(map[string]*bucket)}
}

// CreateCollection registers a collection.
// Re-creating with the same dimension is a no-op; a different dimension is a configuration error.
func (s *Store) CreateCollection(_ context.Context, col collection.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.collections[col.Name()]; ok {
		if existing.col.VectorDim() != col.VectorDim() {
			return domain.NewDimensionMismatch(col.Name(), existing.col.VectorDim(), col.VectorDim())
		}
		return nil
	}
	s.collections[col.Name()] = &bucket{col: col}
	return nil
}

// Insert appends a chunk with its vector and returns the point ID.
func (s *Store) Insert(_ context.Context, name string, c chunk.Chunk, vector []float32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.collections[name]
	if !ok {
		return "", fmt.Errorf("insert into %q: %w", name, domain.ErrCollectionNotFound)
	}
	if len(vector) != b.col.VectorDim() {
		return "", domain.NewDimensionMismatch(name, b.col.VectorDim(), len(vector))
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)

	id := uuid.NewString()
	b.points = append(b.points, point{id: id, chunk: c, vector: vec, norm: norm(vec)})
	return id, nil
}

// Search returns up to k chunks ranked by the collection metric, best first.
// Equal scores keep insertion order. An empty query vector yields no results.
func (s *Store) Search(_ context.Context, name string, query []float32, k int) ([]result.Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("search %q: %w", name, domain.ErrCollectionNotFound)
	}
	if len(query) == 0 {
		return []result.Result{}, nil
	}
	if len(query) != b.col.VectorDim() {
		return nil, domain.NewDimensionMismatch(name, b.col.VectorDim(), len(query))
	}

	qn := norm(query)
	scored := make([]result.Result, len(b.points))
	for i, p := range b.points {
		scored[i] = result.New(p.chunk, score(b.col.Metric(), query, qn, p))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score() > scored[j].Score()
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count returns the number of points in a collection.
func (s *Store) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.collections[name]
	if !ok {
		return 0, fmt.Errorf("count %q: %w", name, domain.ErrCollectionNotFound)
	}
	return len(b.points), nil
}

// Ping always succeeds; it satisfies the health checker contract.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

func score(m collection.Metric, q []float32, qn float64, p point) float64 {
	switch m {
	case collection.MetricDot:
		return dot(q, p.vector)
	case collection.MetricEuclidean:
		var sum float64
		for i := range q {
			d := float64(q[i]) - float64(p.vector[i])
			sum += d * d
		}
		return -math.Sqrt(sum)
	default:
		if qn == 0 || p.norm == 0 {
			return 0
		}
		return dot(q, p.vector) / (qn * p.norm)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
