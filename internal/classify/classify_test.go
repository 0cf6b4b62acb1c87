package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/jonathan/opportunity-miner/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	response string
	err      error
	prompts  []string
	tiers    []llm.ModelTier
}

func (f *fakeLLM) GenerateJSON(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.tiers = append(f.tiers, tier)
	return f.response, f.err
}

func (f *fakeLLM) GetModel(llm.ModelTier) string { return "fake" }
func (f *fakeLLM) Close() error                  { return nil }

const saasResponse = "```json\n" + `{
	"pain_points": ["CRMs are too expensive for solo founders"],
	"business_opportunities": ["Lightweight CRM priced per contact"],
	"automation_ideas": ["Auto-log emails to contacts"],
	"confidence_score": 8,
	"summary": "Solo founders want a cheap, simple CRM.",
	"category": "SaaS",
	"sub_category": "CRM"
}` + "\n```"

func TestClassify_Success(t *testing.T) {
	client := &fakeLLM{response: saasResponse}
	c := NewLLMClassifier(client)

	j, err := c.Classify(context.Background(), "Cheap CRM?", "Looking for something simple", []string{"HubSpot is pricey", "Use a spreadsheet"})
	require.NoError(t, err)

	assert.Equal(t, "SaaS", j.Category)
	assert.Equal(t, "CRM", j.SubCategory)
	assert.Equal(t, 8, j.ConfidenceScore)
	assert.Equal(t, []string{"CRMs are too expensive for solo founders"}, j.PainPoints)

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.Contains(t, prompt, "Cheap CRM?")
	assert.Contains(t, prompt, "Looking for something simple")
	assert.Contains(t, prompt, "- HubSpot is pricey\n- Use a spreadsheet")
	assert.Contains(t, prompt, "- SaaS: CRM, HR Tech")
	assert.NotContains(t, prompt, "{{.")
	assert.Equal(t, llm.TierStandard, client.tiers[0])
}

func TestClassify_LLMError(t *testing.T) {
	c := NewLLMClassifier(&fakeLLM{err: errors.New("quota exceeded")})

	_, err := c.Classify(context.Background(), "t", "b", nil)
	require.Error(t, err)

	var classErr *ClassificationError
	require.ErrorAs(t, err, &classErr)
	assert.Equal(t, StageGenerate, classErr.Stage)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestClassify_UnknownCategory(t *testing.T) {
	response := `{"pain_points":[],"business_opportunities":[],"automation_ideas":[],"confidence_score":3,"summary":"s","category":"Crypto","sub_category":"DeFi"}`
	c := NewLLMClassifier(&fakeLLM{response: response})

	_, err := c.Classify(context.Background(), "t", "b", nil)
	var classErr *ClassificationError
	require.ErrorAs(t, err, &classErr)
	assert.Equal(t, StageParse, classErr.Stage)
}

func TestClassify_SubCategoryFromOtherCategory(t *testing.T) {
	response := `{"pain_points":[],"business_opportunities":[],"automation_ideas":[],"confidence_score":3,"summary":"s","category":"Gaming","sub_category":"CRM"}`
	c := NewLLMClassifier(&fakeLLM{response: response})

	_, err := c.Classify(context.Background(), "t", "b", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not belong")
}

func TestClassify_NilClient(t *testing.T) {
	c := NewLLMClassifier(nil)
	_, err := c.Classify(context.Background(), "t", "b", nil)
	var classErr *ClassificationError
	require.ErrorAs(t, err, &classErr)
}

func TestParseJudgement_NotJSON(t *testing.T) {
	_, err := ParseJudgement("I could not classify this post.")
	assert.Error(t, err)
}

func TestParseJudgement_TrimsCategoryWhitespace(t *testing.T) {
	response := `{"pain_points":["a"],"business_opportunities":[],"automation_ideas":[],"confidence_score":5,"summary":"s","category":" Travel ","sub_category":"Corporate Travel "}`

	j, err := ParseJudgement(response)
	require.NoError(t, err)
	assert.Equal(t, "Travel", j.Category)
	assert.Equal(t, "Corporate Travel", j.SubCategory)
}

func TestBuildPrompt_NoComments(t *testing.T) {
	prompt, err := BuildPrompt("t", "b", nil)
	require.NoError(t, err)
	assert.Contains(t, prompt, "(no comments)")
}
