package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/llm"
	"github.com/querypilot/engine/pkg/models"
	"github.com/querypilot/engine/pkg/prompts"
)

// IntentService classifies a natural-language question into a structured
// intent record. It is a best-effort heuristic classifier: a malformed
// model response degrades to defaults rather than failing.
type IntentService interface {
	Understand(ctx context.Context, question string) (*models.QueryIntent, error)
}

type intentService struct {
	client llm.GenerationClient
	logger *zap.Logger
}

// NewIntentService creates an intent service over the generation client.
func NewIntentService(client llm.GenerationClient, logger *zap.Logger) IntentService {
	return &intentService{client: client, logger: logger.Named("intent")}
}

// Understand calls the generation provider and parses the labeled response
// lines. Only a provider failure is returned as an error; any parse
// shortfall falls back to per-field defaults.
func (s *intentService) Understand(ctx context.Context, question string) (*models.QueryIntent, error) {
	prompt := prompts.BuildIntentPrompt(question)
	text, err := s.client.GenerateResponse(ctx, prompt, "", 0)
	if err != nil {
		return nil, fmt.Errorf("intent generation: %w", err)
	}

	intent := parseIntentResponse(text, question)
	s.logger.Debug("parsed intent",
		zap.String("intent", intent.Intent),
		zap.Strings("entities", intent.Entities))
	return intent, nil
}

// parseIntentResponse reads the four labeled lines tolerantly. Labels are
// matched case-insensitively; a missing or empty label keeps its default.
func parseIntentResponse(text, question string) *models.QueryIntent {
	intent := &models.QueryIntent{
		Intent:  models.DefaultIntent,
		Summary: question,
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "INTENT:"):
			if v := strings.ToUpper(labelValue(line)); v != "" {
				intent.Intent = v
			}
		case strings.HasPrefix(upper, "ENTITIES:"):
			intent.Entities = splitList(labelValue(line))
		case strings.HasPrefix(upper, "CONDITIONS:"):
			intent.Conditions = splitList(labelValue(line))
		case strings.HasPrefix(upper, "SUMMARY:"):
			if v := labelValue(line); v != "" {
				intent.Summary = v
			}
		}
	}
	return intent
}

func labelValue(line string) string {
	_, value, _ := strings.Cut(line, ":")
	return strings.TrimSpace(value)
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
