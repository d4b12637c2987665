package gstr3b

import (
	"context"
	"errors"
	"testing"
	"time"

	"financial_underwriting/pkg/core/agent"
	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/core/prompt"
	"financial_underwriting/pkg/core/store"
	"financial_underwriting/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *models.Date {
	v := models.NewDate(y, m, d)
	return &v
}

func returns() []models.GSTR3BReturn {
	return []models.GSTR3BReturn{
		{Period: "052023", FilingDate: date(2023, time.June, 25), OutwardTaxableValue: 1000, TaxLiability: 180, ITCAvailed: 120, CashPaid: 60},
		{Period: "032023", FilingDate: date(2023, time.April, 20), OutwardTaxableValue: 500, TaxLiability: 90, ITCAvailed: 60, CashPaid: 30},
		{Period: "042023", FilingDate: date(2023, time.May, 2), OutwardTaxableValue: 1, TaxLiability: 1},
		{Period: "042023", FilingDate: date(2023, time.May, 18), OutwardTaxableValue: 800, TaxLiability: 144, ITCAvailed: 120, CashPaid: 10},
		{Period: "072023", OutwardTaxableValue: 0},
		{Period: "13-2023"},
	}
}

func TestParsePeriod(t *testing.T) {
	got, ok := ParsePeriod("042023")
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC), got)

	for _, bad := range []string{"", "42023", "132023", "002023", "04-2023", "042016"} {
		_, ok := ParsePeriod(bad)
		assert.False(t, ok, bad)
	}
}

func TestAggregate(t *testing.T) {
	agg := Aggregate(returns())

	require.Len(t, agg.Months, 4)
	assert.Equal(t, "032023", agg.FirstPeriod)
	assert.Equal(t, "072023", agg.LastPeriod)
	assert.Equal(t, 2300.0, agg.OutwardTaxableValue)
	assert.Equal(t, 414.0, agg.TaxLiability)
	assert.Equal(t, 300.0, agg.ITCAvailed)
	assert.Equal(t, 100.0, agg.CashPaid)
	require.NotNil(t, agg.ITCShare)
	assert.Equal(t, 75.0, *agg.ITCShare)

	assert.Equal(t, []LateFiling{{Period: "052023", DaysLate: 5}}, agg.LateFilings)
	assert.Equal(t, []string{"072023"}, agg.Unfiled)
	assert.Equal(t, []string{"062023"}, agg.MissingPeriods)
	require.Len(t, agg.Issues, 2)
	assert.Contains(t, agg.Issues[0], "duplicate return for 042023")
	assert.Contains(t, agg.Issues[1], `"13-2023"`)

	require.Len(t, agg.ByFiscalYear, 2)
	assert.Equal(t, FiscalYearTotal{Year: "2022-2023", Months: 1, OutwardTaxableValue: 500, TaxLiability: 90}, agg.ByFiscalYear[0])
	assert.Equal(t, "2023-2024", agg.ByFiscalYear[1].Year)
	assert.Equal(t, 3, agg.ByFiscalYear[1].Months)
}

func TestAggregate_ExplicitDueDate(t *testing.T) {
	agg := Aggregate([]models.GSTR3BReturn{
		{Period: "012024", FilingDate: date(2024, time.February, 22), DueDate: date(2024, time.February, 24)},
	})
	assert.Empty(t, agg.LateFilings)
	assert.Nil(t, agg.ITCShare)
}

func TestAggregates_Text(t *testing.T) {
	text := Aggregate(returns()).Text()
	assert.Contains(t, text, "Return periods: 4 (032023 to 072023)")
	assert.Contains(t, text, "Outward taxable value: ₹2,300")
	assert.Contains(t, text, "ITC share of tax paid: 75.00%")
	assert.Contains(t, text, "Late filings: 052023 (5 days)")
	assert.Contains(t, text, "Not filed: 072023")
	assert.Contains(t, text, "Missing periods: 062023")
	assert.Contains(t, text, "FY 2022-2023: 1 month(s)")
}

type MockExecutor struct {
	Reply   string
	Err     error
	agent   string
	prompts []string
}

func (m *MockExecutor) ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string, options map[string]interface{}) (string, error) {
	m.agent = agentType
	m.prompts = append(m.prompts, rawPrompt)
	return m.Reply, m.Err
}

func newPipeline(t *testing.T, exec *MockExecutor, tracker store.TrackerStore) *Pipeline {
	t.Helper()
	prompts, err := prompt.Load("")
	require.NoError(t, err)
	return NewPipeline(exec, prompts, tracker, nil)
}

func TestPipeline_Run(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.SeedApplication("app3", nil))
	exec := &MockExecutor{Reply: "## Filing discipline\n\nOne return was filed **5 days** late."}

	text, err := newPipeline(t, exec, st).Run(context.Background(), models.FinancialTask{
		Type:          models.TaskGSTR3BSummary,
		GstNumber:     "24aaefk8509n1zz",
		ApplicationID: "app3",
		GSTR3BReturns: returns(),
	})
	require.NoError(t, err)
	assert.Equal(t, agent.GSTR3BSummary, exec.agent)
	assert.Contains(t, exec.prompts[0], "24AAEFK8509N1ZZ")
	assert.Contains(t, exec.prompts[0], "Missing periods: 062023")
	assert.Equal(t, "Filing discipline\n\nOne return was filed 5 days late.", text)

	doc, _ := st.Application("app3")
	assert.Equal(t, text, doc[TrackerField])
}

func TestPipeline_Errors(t *testing.T) {
	st := store.NewMemoryStore()

	_, err := newPipeline(t, &MockExecutor{}, st).Run(context.Background(), models.FinancialTask{GstNumber: "x"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = newPipeline(t, &MockExecutor{}, st).Run(context.Background(), models.FinancialTask{
		GSTR3BReturns: []models.GSTR3BReturn{{Period: "bad"}},
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = newPipeline(t, &MockExecutor{Err: errors.New("timeout")}, st).Run(context.Background(), models.FinancialTask{GSTR3BReturns: returns()})
	assert.True(t, apperr.IsKind(err, apperr.KindCapability))

	_, err = newPipeline(t, &MockExecutor{Reply: "   "}, st).Run(context.Background(), models.FinancialTask{GSTR3BReturns: returns()})
	assert.True(t, apperr.IsKind(err, apperr.KindCapability))
}
