// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/poiesic/tenderqa/ai"
	"github.com/poiesic/tenderqa/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// KeywordExtractor implements ai.KeywordExtractor using OpenAI-compatible chat APIs.
type KeywordExtractor struct {
	client llms.Model
	logger *slog.Logger
}

// filter is an internal type used for JSON unmarshaling.
type filter struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// filterResponse is the wrapper structure for the LLM's JSON response.
type filterResponse struct {
	Filters []filter `json:"filters"`
}

// maxParseAttempts bounds retries when the model returns malformed JSON.
const maxParseAttempts = 3

// newKeywordExtractor is an internal constructor that returns the concrete type.
func newKeywordExtractor(config *ai.Config) (*KeywordExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.GeneratorHost),
		openai.WithToken(config.APIToken),
		openai.WithModel(config.GeneratorModel),
	)
	if err != nil {
		return nil, err
	}

	return &KeywordExtractor{
		client: client,
		logger: slog.Default().With("component", "openai-keywords"),
	}, nil
}

// NewKeywordExtractor creates a new keyword extractor using the provided configuration.
//
// Returns ai.KeywordExtractor interface to enforce abstraction.
func NewKeywordExtractor(config *ai.Config) (ai.KeywordExtractor, error) {
	return newKeywordExtractor(config)
}

// ExtractKeywords asks the model which vocabulary values the query refers to.
// Suggestions naming unknown columns are dropped here; callers still check
// values against the vocabulary.
func (e *KeywordExtractor) ExtractKeywords(ctx context.Context, query string, vocabulary map[core.Column][]string) ([]ai.Keyword, error) {
	query = scrubString(query)
	if query == "" {
		return []ai.Keyword{}, nil
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildKeywordPrompt(vocabulary))},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(query)},
		},
	}

	var result filterResponse
	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}
		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return []ai.Keyword{}, nil
		}

		responseText := repairJSON(stripCodeFence(response.Choices[0].Content))
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing keyword response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		e.logger.Error("failed to parse keyword response after retries", "err", lastErr)
		return nil, lastErr
	}

	return toKeywords(result.Filters), nil
}

func toKeywords(filters []filter) []ai.Keyword {
	keywords := make([]ai.Keyword, 0, len(filters))
	for _, f := range filters {
		col, err := core.ParseColumn(f.Column)
		if err != nil || !col.Filterable() {
			continue
		}
		value := core.Normalize(f.Value)
		if value == "" {
			continue
		}
		keywords = append(keywords, ai.Keyword{Column: col, Value: value})
	}
	return keywords
}
