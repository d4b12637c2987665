package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"financial_underwriting/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Embedded(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	for _, id := range []string{
		ExtractionInstruction, ExtractionCommonRules, ExtractionBalanceSheet,
		ExtractionProfitLoss, SummaryFinancial, SummaryGST, SummaryGSTR3B,
	} {
		_, err := r.GetPrompt(id)
		assert.NoError(t, err, id)
	}
}

func TestExtractionPrompts(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	instruction, schema, err := r.ExtractionPrompts(models.BalanceSheet)
	require.NoError(t, err)
	assert.Contains(t, instruction, "Return ONLY JSON")
	assert.Contains(t, schema, "totalShareholdersFunds")
	assert.Contains(t, schema, "dash cell")
	assert.NotContains(t, schema, "{{")

	_, schema, err = r.ExtractionPrompts(models.ProfitAndLoss)
	require.NoError(t, err)
	assert.Contains(t, schema, "profitAfterTax")

	_, _, err = r.ExtractionPrompts(models.DocumentKind("CF"))
	assert.Error(t, err)
}

func TestLoad_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.hjson")
	require.NoError(t, os.WriteFile(path, []byte(`{
  prompts: [
    { id: summary.gst, user_prompt_template: "GST {{.GstNumber}} is {{.Status}}" }
  ]
}`), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Count())

	pt, err := r.GetPrompt(SummaryGST)
	require.NoError(t, err)
	out, err := RenderUserPrompt(pt, NewContext().Set("GstNumber", "24AAEFK8509N1ZZ"))
	require.NoError(t, err)
	assert.Equal(t, "GST 24AAEFK8509N1ZZ is <no value>", out)

	_, err = Load(filepath.Join(t.TempDir(), "missing.hjson"))
	assert.Error(t, err)
}

func TestRegister_RequiresID(t *testing.T) {
	assert.Error(t, NewRegistry().Register(&PromptTemplate{}))
}
