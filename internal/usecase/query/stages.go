package query

import (
	"context"
	"fmt"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain/search/result"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/metrics"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/pipeline/dag"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/prompt"
)

// Node names and input keys of the question graph.
const (
	NodeEmbedder  = "embedder"
	NodeRetriever = "retriever"
	NodePrompt    = "prompt"
	NodeGenerator = "generator"

	KeyQueryVector    = "query_vector"
	KeyCollectionName = "collection_name"
	KeyK              = "k"
	KeyPrompt         = "prompt"
	KeyContext        = "context"
)

// queryAliases are the accepted names for the question text, in precedence order.
var queryAliases = []string{"text", "input", "query"}

// DecodeQueryRequest reads the question from the first non-empty alias.
func DecodeQueryRequest(in dag.Inputs) (domain.QueryRequest, error) {
	for _, key := range queryAliases {
		v, ok := in[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return domain.QueryRequest{}, fmt.Errorf("%w: input %q is %T, not string", domain.ErrInvalidArgument, key, v)
		}
		if s != "" {
			return domain.QueryRequest{Text: s}, nil
		}
	}
	return domain.QueryRequest{}, nil
}

func embedderStage(e QueryEmbedder) dag.Stage {
	return dag.StageFunc(func(ctx context.Context, in dag.Inputs) (any, error) {
		req, err := DecodeQueryRequest(in)
		if err != nil {
			return nil, err
		}
		return e.EmbedQuery(ctx, req), nil
	})
}

func retrieverStage(r Retriever) dag.Stage {
	return dag.StageFunc(func(ctx context.Context, in dag.Inputs) (any, error) {
		vec, ok := in[KeyQueryVector].([]float32)
		if !ok && in[KeyQueryVector] != nil {
			return nil, fmt.Errorf("%w: %s is %T", domain.ErrInvalidArgument, KeyQueryVector, in[KeyQueryVector])
		}
		name, _ := in[KeyCollectionName].(string)
		if name == "" {
			return nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidArgument, KeyCollectionName)
		}
		k, err := intInput(in, KeyK)
		if err != nil {
			return nil, err
		}

		results, err := r.Search(ctx, name, vec, k)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		if len(results) == 0 {
			metrics.RetrievalEmptyTotal.Inc()
			return results, fmt.Errorf("no matching documents: %w", dag.ErrStop)
		}
		return results, nil
	})
}

func promptStage(user, retrieval *prompt.Template) dag.Stage {
	return dag.StageFunc(func(_ context.Context, in dag.Inputs) (any, error) {
		results, _ := in[prompt.BindChunks].([]result.Result)
		bindings := make(map[string]any, len(in))
		for k, v := range in {
			bindings[k] = v
		}
		bindings[prompt.BindChunks] = result.Chunks(results)

		userText, err := user.Render(bindings)
		if err != nil {
			return nil, err
		}
		contextText, err := retrieval.Render(bindings)
		if err != nil {
			return nil, err
		}
		return map[string]any{KeyPrompt: userText, KeyContext: contextText}, nil
	})
}

func generatorStage(g domain.Generator) dag.Stage {
	return dag.StageFunc(func(ctx context.Context, in dag.Inputs) (any, error) {
		p, _ := in[KeyPrompt].(string)
		if p == "" {
			return nil, fmt.Errorf("%w: empty prompt", domain.ErrInvalidArgument)
		}
		answer, err := g.Generate(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		return answer, nil
	})
}

func intInput(in dag.Inputs, key string) (int, error) {
	switch v := in[key].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case nil:
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidArgument, key)
	default:
		return 0, fmt.Errorf("%w: %s is %T, not a number", domain.ErrInvalidArgument, key, v)
	}
}
