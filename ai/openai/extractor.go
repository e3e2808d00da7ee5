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
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/notewell/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// EntityExtractor implements ai.EntityExtractor using OpenAI-compatible chat APIs.
type EntityExtractor struct {
	client        llms.Model
	minConfidence float64
	logger        *slog.Logger
}

// entity is an internal type used for JSON unmarshaling.
// It matches the structure expected from the LLM.
type entity struct {
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	SpanStart  *int    `json:"span_start"`
	SpanEnd    *int    `json:"span_end"`
}

// extraction is the wrapper structure for the LLM's JSON response.
type extraction struct {
	Entities []entity `json:"entities"`
}

// newEntityExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEntityExtractor(config *ai.Config) (*EntityExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat/extraction
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken("none"),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return &EntityExtractor{
		client:        client,
		minConfidence: config.MinConfidence,
		logger:        slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewEntityExtractor creates a new entity extractor using the provided configuration.
//
// Returns ai.EntityExtractor interface to enforce abstraction.
func NewEntityExtractor(config *ai.Config) (ai.EntityExtractor, error) {
	return newEntityExtractor(config)
}

// ExtractEntities extracts entity mentions from text using an LLM.
// It applies confidence filtering and returns only mentions above the
// minimum threshold. The input is passed verbatim so reported spans
// stay valid offsets into it.
func (e *EntityExtractor) ExtractEntities(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
	systemPrompt := buildSystemPrompt()
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result extraction
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, fmt.Errorf("%w: %v", ai.ErrExtractionFailed, err)
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return []ai.ExtractedEntity{}, nil
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extractor response after retries", "err", lastErr)
		return nil, fmt.Errorf("%w: %v", ai.ErrExtractionFailed, lastErr)
	}

	// Filter by confidence and convert to ai.ExtractedEntity
	extracted := make([]ai.ExtractedEntity, 0, len(result.Entities))
	for _, ent := range result.Entities {
		if ent.Text == "" || ent.Confidence < e.minConfidence {
			continue
		}
		if ent.Confidence > 1 {
			ent.Confidence = 1
		}
		start, end := resolveSpan(text, ent)
		extracted = append(extracted, ai.ExtractedEntity{
			Text:       ent.Text,
			Type:       strings.ToLower(strings.TrimSpace(ent.Type)),
			Confidence: ent.Confidence,
			SpanStart:  start,
			SpanEnd:    end,
		})
	}

	// Sort by confidence (descending)
	slices.SortFunc(extracted, func(a, b ai.ExtractedEntity) int {
		if a.Confidence == b.Confidence {
			return 0
		}
		if a.Confidence < b.Confidence {
			return 1
		}
		return -1
	})

	e.logger.Debug("extracted entities",
		"total", len(result.Entities),
		"filtered", len(extracted))

	return extracted, nil
}

// resolveSpan validates the model-reported offsets against the input
// and falls back to a substring search, then to absent offsets. Models
// frequently fabricate spans; an absent span is preferred to a wrong one.
func resolveSpan(text string, ent entity) (int, int) {
	if ent.SpanStart != nil && ent.SpanEnd != nil {
		start, end := *ent.SpanStart, *ent.SpanEnd
		if start >= 0 && start <= end && end <= len(text) && text[start:end] == ent.Text {
			return start, end
		}
	}
	if idx := strings.Index(text, ent.Text); idx >= 0 {
		return idx, idx + len(ent.Text)
	}
	return -1, -1
}
