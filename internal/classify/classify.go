// Package classify turns a post and its top comments into a categorized judgement using a language model.
package classify

import (
	"context"
	"errors"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/opportunity-miner/internal/llm"
	"github.com/jonathan/opportunity-miner/internal/prompts"
	"github.com/jonathan/opportunity-miner/internal/schemas"
	"github.com/jonathan/opportunity-miner/internal/types"
)

// LLMClassifier classifies posts with an llm.Client.
type LLMClassifier struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewLLMClassifier returns a classifier using the standard model tier.
func NewLLMClassifier(client llm.Client) *LLMClassifier {
	return &LLMClassifier{client: client, tier: llm.TierStandard}
}

// Classify asks the model for a judgement, then checks it against the schema and the taxonomy.
// Every failure is returned as a *ClassificationError.
func (c *LLMClassifier) Classify(ctx context.Context, title, body string, comments []string) (*types.Judgement, error) {
	if c.client == nil {
		return nil, &ClassificationError{Stage: StageGenerate, Cause: errors.New("LLM client is required")}
	}

	prompt, err := BuildPrompt(title, body, comments)
	if err != nil {
		return nil, &ClassificationError{Stage: StagePrompt, Cause: err}
	}

	responseText, err := c.client.GenerateJSON(ctx, prompt, c.tier)
	if err != nil {
		return nil, &ClassificationError{Stage: StageGenerate, Cause: err}
	}

	judgement, err := ParseJudgement(responseText)
	if err != nil {
		return nil, &ClassificationError{Stage: StageParse, Cause: err}
	}
	return judgement, nil
}

// BuildPrompt fills the classification prompt template.
func BuildPrompt(title, body string, comments []string) (string, error) {
	return prompts.Render(prompts.ClassificationFile, prompts.ClassifyOpportunity, map[string]string{
		"Title":      title,
		"Body":       body,
		"Comments":   formatComments(comments),
		"Categories": formatTaxonomy(),
	})
}

// ParseJudgement cleans, schema-checks, decodes and taxonomy-checks a model response.
func ParseJudgement(responseText string) (*types.Judgement, error) {
	cleaned := llm.CleanJSONBlock(responseText)
	if err := schemas.ValidateJudgement(cleaned); err != nil {
		return nil, err
	}

	var judgement types.Judgement
	if err := json.Unmarshal([]byte(cleaned), &judgement); err != nil {
		return nil, fmt.Errorf("failed to unmarshal judgement JSON: %w", err)
	}

	judgement.Category = strings.TrimSpace(judgement.Category)
	judgement.SubCategory = strings.TrimSpace(judgement.SubCategory)
	if err := types.ValidateJudgement(&judgement); err != nil {
		return nil, err
	}
	return &judgement, nil
}

func formatComments(comments []string) string {
	if len(comments) == 0 {
		return "(no comments)"
	}
	var sb strings.Builder
	for i, comment := range comments {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(comment)
	}
	return sb.String()
}

func formatTaxonomy() string {
	var sb strings.Builder
	for i, c := range types.Categories {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("- %s: %s", c.Name, strings.Join(c.SubCategories, ", ")))
	}
	return sb.String()
}
