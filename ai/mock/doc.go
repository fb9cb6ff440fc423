// Package mock provides test double implementations of AI service interfaces.
//
// # Usage in Tests
//
//	provider := mock.NewMockProviderWithServices(nil, nil, nil)
//	provider.GetMockGenerator().GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
//	    return "", errors.New("model offline")
//	}
//
// # Default Behavior
//
//   - MockEmbedder: deterministic vectors derived from an FNV hash of the text
//   - MockGenerator: returns "mock answer" and records every prompt
//   - MockKeywordExtractor: returns vocabulary values that share a word with the query
package mock
