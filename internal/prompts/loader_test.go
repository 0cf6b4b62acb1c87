package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ClassificationPrompt(t *testing.T) {
	prompt, err := Get(ClassificationFile, ClassifyOpportunity)
	require.NoError(t, err)
	for _, placeholder := range []string{"{{.Title}}", "{{.Body}}", "{{.Comments}}", "{{.Categories}}"} {
		assert.Contains(t, prompt, placeholder)
	}
}

func TestGet_Missing(t *testing.T) {
	_, err := Get("nonexistent.json", ClassifyOpportunity)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt file nonexistent.json not found")

	_, err = Get(ClassificationFile, "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestFormat(t *testing.T) {
	out := Format("Title: {{.Title}} / {{.Title}} / {{.Missing}}", map[string]string{"Title": "Need a CRM"})
	assert.Equal(t, "Title: Need a CRM / Need a CRM / {{.Missing}}", out)
}

func TestFormat_ValuesAreNotReexpanded(t *testing.T) {
	out := Format("{{.Title}}\n{{.Body}}", map[string]string{
		"Title": "literal {{.Body}} in a post title",
		"Body":  "body text",
	})
	assert.Equal(t, "literal {{.Body}} in a post title\nbody text", out)
}

func TestRender(t *testing.T) {
	out, err := Render(ClassificationFile, ClassifyOpportunity, map[string]string{"Title": "Invoices take hours"})
	require.NoError(t, err)
	assert.Contains(t, out, "Post title: Invoices take hours")
	assert.NotContains(t, out, "{{.Title}}")
}

func TestKeys(t *testing.T) {
	keys, err := Keys(ClassificationFile)
	require.NoError(t, err)
	assert.Equal(t, []string{ClassifyOpportunity}, keys)
}
