package reconcile

import (
	"strings"
	"testing"
	"time"

	"financial_underwriting/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type obj = map[string]interface{}

func bsRaw(sheet obj) obj {
	return obj{"companyName": "Acme Traders", "fiscalYearEnd": "2024-03-31", "balanceSheet": sheet}
}

func TestDashNormalization(t *testing.T) {
	for _, dash := range []string{"-", "–", "—"} {
		t.Run(dash, func(t *testing.T) {
			rec := New().BalanceSheet(bsRaw(obj{
				"currentLiabilities": obj{
					"shortTermBorrowings": dash,
					"tradePayables":       700.0,
				},
			}))
			cl := rec.BalanceSheet.CurrentLiabilities
			assert.Equal(t, 0.0, cl.ShortTermBorrowings)
			assert.Equal(t, 700.0, cl.TradePayables)
			assert.NotContains(t, rec.Quality.Missing, "balanceSheet.currentLiabilities.shortTermBorrowings")
		})
	}
}

func TestBlankRule(t *testing.T) {
	rec := New().BalanceSheet(bsRaw(obj{
		"currentAssets": obj{
			"inventories":        obj{"value": "", "label": "Closing Stock"},
			"tradeReceivables":   obj{"value": "", "label": "Misc. balances"},
			"otherCurrentAssets": "nil",
		},
	}))
	q := rec.Quality
	assert.NotContains(t, q.Missing, "balanceSheet.currentAssets.inventories", "recognised label maps blank to zero")
	assert.Contains(t, q.Missing, "balanceSheet.currentAssets.tradeReceivables")
	assert.NotContains(t, q.Missing, "balanceSheet.currentAssets.otherCurrentAssets", "a schema key is a recognised row")
	assert.Contains(t, q.Missing, "balanceSheet.currentAssets.cashAndCashEquivalents", "absent rows are missing")
	assert.Equal(t, 0.0, rec.BalanceSheet.CurrentAssets.TradeReceivables)
	assert.Equal(t, 0.0, rec.BalanceSheet.CurrentAssets.OtherCurrentAssets)
}

func TestBlankRule_SchemaKeyWithoutLabel(t *testing.T) {
	raw := pnlRaw()
	expenses := raw["profitAndLoss"].(obj)["expenses"].(obj)
	expenses["changesInInventory"] = ""
	expenses["purchaseOfStockInTrade"] = "nil"

	rec := New().ProfitAndLoss(raw)
	assert.NotContains(t, rec.Quality.Missing, "profitAndLoss.expenses.changesInInventory")
	assert.NotContains(t, rec.Quality.Missing, "profitAndLoss.expenses.purchaseOfStockInTrade")
	assert.Equal(t, 0.0, rec.ProfitAndLoss.Expenses.PurchaseOfStockInTrade)
	assert.NotNil(t, rec.Metrics.GrossProfit)
}

func noteSheet(additive bool) obj {
	return bsRaw(obj{
		"nonCurrentLiabilities": obj{
			"longTermBorrowings": 1000.0,
			"otherLongTermLiabilities": obj{
				"value": 500.0,
				"label": "Other Liabilities",
				"note":  obj{"ref": "7", "subject": "Short Term Borrowings", "total": 500.0, "additive": additive},
			},
			"deferredTaxLiability":       0.0,
			"totalNonCurrentLiabilities": 1500.0,
		},
		"currentLiabilities": obj{
			"shortTermBorrowings":     200.0,
			"tradePayables":           700.0,
			"otherCurrentLiabilities": 0.0,
			"shortTermProvisions":     0.0,
			"totalCurrentLiabilities": 900.0,
		},
	})
}

func TestNoteOverride_ReassignsToOtherCategory(t *testing.T) {
	rec := New().BalanceSheet(noteSheet(false))
	ncl, cl := rec.BalanceSheet.NonCurrentLiabilities, rec.BalanceSheet.CurrentLiabilities

	assert.Equal(t, 0.0, ncl.OtherLongTermLiabilities)
	assert.Equal(t, 500.0, cl.ShortTermBorrowings)
	assert.Equal(t, 1000.0, ncl.TotalNonCurrentLiabilities, "totals touched by a reassignment are recomputed")
	assert.Equal(t, 1200.0, cl.TotalCurrentLiabilities)
}

func TestNoteOverride_Additive(t *testing.T) {
	rec := New().BalanceSheet(noteSheet(true))
	cl := rec.BalanceSheet.CurrentLiabilities

	assert.Equal(t, 0.0, rec.BalanceSheet.NonCurrentLiabilities.OtherLongTermLiabilities)
	assert.Equal(t, 700.0, cl.ShortTermBorrowings)
	assert.Equal(t, 1400.0, cl.TotalCurrentLiabilities)
}

func TestNoteOverride_SameCategory(t *testing.T) {
	rec := New().BalanceSheet(bsRaw(obj{
		"currentLiabilities": obj{
			"tradePayables": obj{
				"value": 100.0,
				"label": "Trade Payables",
				"note": obj{"ref": 9, "subject": "Trade Payables", "items": []interface{}{
					obj{"label": "MSME", "value": 60.0},
					obj{"label": "Others", "value": "90"},
				}},
			},
			"shortTermProvisions": obj{
				"value": 10.0,
				"note":  obj{"ref": "10", "total": "25"},
			},
		},
	}))
	cl := rec.BalanceSheet.CurrentLiabilities
	assert.Equal(t, 150.0, cl.TradePayables, "breakdown sum replaces the row value")
	assert.Equal(t, 25.0, cl.ShortTermProvisions, "note total replaces the row value")
}

func TestNoteOverride_UnmappedSubject(t *testing.T) {
	rec := New().BalanceSheet(bsRaw(obj{
		"currentLiabilities": obj{
			"otherCurrentLiabilities": obj{
				"value": 80.0,
				"label": "Other Liabilities",
				"note":  obj{"ref": "12", "subject": "Statutory dues to the moon", "total": 80.0},
			},
		},
	}))
	assert.Equal(t, 0.0, rec.BalanceSheet.CurrentLiabilities.OtherCurrentLiabilities)
	require.NotEmpty(t, rec.Quality.Issues)
	assert.Contains(t, strings.Join(rec.Quality.Issues, "\n"), "maps to no field")
}

func currentAssets(inventories interface{}, total interface{}) obj {
	ca := obj{
		"currentInvestments":        0.0,
		"tradeReceivables":          500.0,
		"cashAndCashEquivalents":    0.0,
		"shortTermLoansAndAdvances": 0.0,
		"otherCurrentAssets":        0.0,
	}
	if inventories != nil {
		ca["inventories"] = inventories
	}
	if total != nil {
		ca["totalCurrentAssets"] = total
	}
	return bsRaw(obj{"currentAssets": ca})
}

func TestCrossValidation(t *testing.T) {
	const totalPath = "balanceSheet.currentAssets.totalCurrentAssets"

	t.Run("within tolerance takes computed", func(t *testing.T) {
		rec := New().BalanceSheet(currentAssets(498.0, 1000.0))
		assert.Equal(t, 998.0, rec.BalanceSheet.CurrentAssets.TotalCurrentAssets)
		assert.Contains(t, rec.Quality.Derived, totalPath)
	})

	t.Run("outside tolerance keeps reported", func(t *testing.T) {
		rec := New().BalanceSheet(currentAssets(400.0, 1000.0))
		assert.Equal(t, 1000.0, rec.BalanceSheet.CurrentAssets.TotalCurrentAssets)
		assert.NotContains(t, rec.Quality.Derived, totalPath)
		assert.Contains(t, strings.Join(rec.Quality.Issues, "\n"), "differs from computed")
	})

	t.Run("absent total is computed", func(t *testing.T) {
		rec := New().BalanceSheet(currentAssets(250.0, nil))
		assert.Equal(t, 750.0, rec.BalanceSheet.CurrentAssets.TotalCurrentAssets)
		assert.Contains(t, rec.Quality.Derived, totalPath)
		assert.NotContains(t, rec.Quality.Missing, totalPath)
	})

	t.Run("absent total with missing terms stays missing", func(t *testing.T) {
		rec := New().BalanceSheet(bsRaw(obj{"currentAssets": obj{"tradeReceivables": 500.0, "inventories": 250.0}}))
		assert.Equal(t, 0.0, rec.BalanceSheet.CurrentAssets.TotalCurrentAssets)
		assert.Contains(t, rec.Quality.Missing, totalPath)
		assert.NotContains(t, rec.Quality.Derived, totalPath)
		assert.Contains(t, rec.Quality.Missing, "balanceSheet.totalAssets", "the gap carries up to the grand total")
		assert.Contains(t, strings.Join(rec.Quality.Issues, "\n"), "4 of 6 terms missing")
	})

	t.Run("grand total rolls up from subtotals", func(t *testing.T) {
		rec := New().BalanceSheet(bsRaw(obj{
			"nonCurrentAssets": obj{"tangibleAssets": 300.0, "totalNonCurrentAssets": 300.0},
			"currentAssets":    obj{"inventories": 200.0, "totalCurrentAssets": 200.0},
		}))
		assert.Equal(t, 500.0, rec.BalanceSheet.TotalAssets)
	})
}

func TestBackfillPolicy(t *testing.T) {
	const inv = "balanceSheet.currentAssets.inventories"

	never := New().BalanceSheet(currentAssets(nil, 1000.0))
	assert.Equal(t, 0.0, never.BalanceSheet.CurrentAssets.Inventories)
	assert.Contains(t, never.Quality.Missing, inv)
	assert.Equal(t, 1000.0, never.BalanceSheet.CurrentAssets.TotalCurrentAssets)

	inferred := New(WithBackfillPolicy(InferSingleMissing{})).BalanceSheet(currentAssets(nil, 1000.0))
	assert.Equal(t, 500.0, inferred.BalanceSheet.CurrentAssets.Inventories)
	assert.NotContains(t, inferred.Quality.Missing, inv)
	assert.Contains(t, inferred.Quality.Derived, inv)

	dashed := New(WithBackfillPolicy(InferSingleMissing{})).BalanceSheet(currentAssets("-", 1000.0))
	assert.Equal(t, 0.0, dashed.BalanceSheet.CurrentAssets.Inventories, "dashed terms are never backfilled")

	assert.IsType(t, InferSingleMissing{}, PolicyFor("single-missing"))
	assert.IsType(t, NeverInfer{}, PolicyFor(""))
	assert.IsType(t, NeverInfer{}, PolicyFor("bogus"))
}

func TestSiblingExclusivity(t *testing.T) {
	rec := New().BalanceSheet(bsRaw(obj{
		"currentLiabilities": obj{
			"shortTermBorrowings":     100.0,
			"tradePayables":           500.0,
			"otherCurrentLiabilities": 500.0,
		},
		"currentAssets": obj{
			"inventories":      0.0,
			"tradeReceivables": 0.0,
		},
	}))
	cl := rec.BalanceSheet.CurrentLiabilities
	assert.Equal(t, 0.0, cl.TradePayables)
	assert.Equal(t, 500.0, cl.OtherCurrentLiabilities)
	assert.Equal(t, []string{"balanceSheet.currentLiabilities.tradePayables"}, rec.Quality.AlignmentConflicts)
}

func TestSiblingExclusivity_SkipsNonExclusiveAndTotals(t *testing.T) {
	rec := New().ProfitAndLoss(obj{
		"fiscalYearEnd": "2024-03-31",
		"profitAndLoss": obj{
			"income":           obj{"revenueFromOperations": 900.0, "otherIncome": 100.0, "totalIncome": 1000.0},
			"earningsPerShare": obj{"basicEPS": 4.5, "dilutedEPS": 4.5},
		},
	})
	assert.Empty(t, rec.Quality.AlignmentConflicts)
	assert.Equal(t, 4.5, rec.ProfitAndLoss.EarningsPerShare.BasicEPS)
}

func TestOCRTieBreak(t *testing.T) {
	rec := New().BalanceSheet(bsRaw(obj{
		"currentAssets": obj{
			"inventories": obj{"value": 130.0, "confidence": 0.6, "alternatives": []interface{}{
				obj{"value": 180.0, "confidence": 0.92},
				obj{"value": 138.0, "confidence": 0.4},
			}},
			"tradeReceivables": obj{"value": "2,400", "confidence": 0.7, "alternatives": []interface{}{
				obj{"value": 2900.0, "confidence": 0.5},
			}},
		},
	}))
	ca := rec.BalanceSheet.CurrentAssets
	assert.Equal(t, 180.0, ca.Inventories)
	assert.Equal(t, 2400.0, ca.TradeReceivables)
	assert.NotContains(t, rec.Quality.LowConfidence, "balanceSheet.currentAssets.inventories")
	assert.Contains(t, rec.Quality.LowConfidence, "balanceSheet.currentAssets.tradeReceivables")
	assert.True(t, rec.Quality.Unavailable("balanceSheet.currentAssets.tradeReceivables"))
}

func TestLineItems(t *testing.T) {
	raw := bsRaw(obj{"currentAssets": obj{"inventories": 50.0}})
	raw["lineItems"] = []interface{}{
		obj{"label": "Sundry Debtors", "value": "1,20,000"},
		obj{"label": "Closing Stock", "value": 75.0},
		obj{"label": "Goodwill on consolidation", "value": 10.0},
		obj{"label": "Cash Credit from SBI", "value": 0.0, "note": obj{"ref": "4", "subject": "Secured / OD / CC", "total": 300.0}},
	}
	rec := New().BalanceSheet(raw)

	assert.Equal(t, 120000.0, rec.BalanceSheet.CurrentAssets.TradeReceivables)
	assert.Equal(t, 50.0, rec.BalanceSheet.CurrentAssets.Inventories, "line items never replace structured rows")
	assert.Equal(t, 300.0, rec.BalanceSheet.CurrentLiabilities.ShortTermBorrowings)

	issues := strings.Join(rec.Quality.Issues, "\n")
	assert.Contains(t, issues, "Goodwill on consolidation")
	assert.Contains(t, issues, "duplicates")
}

func TestBalanceSheetCam(t *testing.T) {
	raw := bsRaw(obj{
		"shareholdersFunds":     obj{"shareCapital": 100.0, "reservesAndSurplus": 400.0, "totalShareholdersFunds": 500.0},
		"nonCurrentLiabilities": obj{"longTermBorrowings": 250.0},
		"currentLiabilities":    obj{"shortTermBorrowings": 120.0, "tradePayables": 80.0, "totalCurrentLiabilities": 200.0},
		"currentAssets":         obj{"tradeReceivables": 90.0, "inventories": 60.0, "totalCurrentAssets": 150.0},
	})
	raw["camSheetObject"] = obj{"equity": 480.0}
	rec := New().BalanceSheet(raw)
	cam := rec.CamSheet

	assert.Equal(t, 480.0, cam.Equity, "supplied camSheet values are kept")
	assert.Equal(t, 90.0, cam.Receivable)
	assert.Equal(t, 80.0, cam.Payables)
	assert.Equal(t, 60.0, cam.Inventory)
	assert.Equal(t, 150.0, cam.CurrentAssets)
	assert.Equal(t, 200.0, cam.CurrentLiabilities)
	assert.Equal(t, 250.0, cam.LongTermDebt)
	assert.Equal(t, 120.0, cam.ShortTermDebt)
	assert.Equal(t, 200.0, cam.CurrentDebt)
	assert.Contains(t, rec.Quality.Derived, "camSheetObject.receivable")
	assert.Contains(t, rec.Quality.Missing, "camSheetObject.loansAndAdvancesInBs")
}

func pnlRaw() obj {
	return obj{
		"companyName":   "Acme Traders",
		"fiscalYearEnd": "31-03-2024",
		"profitAndLoss": obj{
			"income": obj{"revenueFromOperations": 1000.0, "otherIncome": 0.0, "totalIncome": 1000.0},
			"expenses": obj{
				"costOfMaterialsConsumed":     400.0,
				"purchaseOfStockInTrade":      100.0,
				"changesInInventory":          0.0,
				"employeeBenefitExpenses":     100.0,
				"financeCosts":                60.0,
				"depreciationAndAmortization": 40.0,
				"otherExpenses":               100.0,
				"totalExpenses":               800.0,
			},
			"profit": obj{
				"profitBeforeTax":    200.0,
				"taxExpenseCurrent":  50.0,
				"taxExpenseDeferred": 0.0,
				"totalTaxExpense":    50.0,
				"profitAfterTax":     150.0,
			},
			"earningsPerShare": obj{"basicEPS": 1.5, "dilutedEPS": 1.5},
		},
	}
}

func TestProfitAndLoss_Metrics(t *testing.T) {
	rec := New().ProfitAndLoss(pnlRaw())

	assert.Equal(t, models.NewDate(2024, time.March, 31), rec.FiscalYearEnd)
	assert.Equal(t, 300.0, rec.ProfitAndLoss.Profit.Ebitda)
	assert.Contains(t, rec.Quality.Derived, "profitAndLoss.profit.ebitda")

	m := rec.Metrics
	require.NotNil(t, m.GrossProfit)
	assert.Equal(t, 500.0, *m.GrossProfit)
	require.NotNil(t, m.Ebit)
	assert.Equal(t, 260.0, *m.Ebit)
	require.NotNil(t, m.EbitdaMargin)
	assert.Equal(t, 30.0, *m.EbitdaMargin)
	require.NotNil(t, m.NetProfitMargin)
	assert.Equal(t, 15.0, *m.NetProfitMargin)
	require.NotNil(t, m.InterestCoverageRatio)
	assert.Equal(t, 4.33, *m.InterestCoverageRatio)

	assert.Equal(t, models.ProfitAndLossCam{Turnover: 1000, GrossProfit: 500, InterestExpenses: 60, NetProfit: 150}, rec.CamSheet)
	assert.Empty(t, rec.Quality.AlignmentConflicts)
}

func TestProfitAndLoss_MetricsUndefined(t *testing.T) {
	raw := pnlRaw()
	expenses := raw["profitAndLoss"].(obj)["expenses"].(obj)
	delete(expenses, "changesInInventory")
	expenses["financeCosts"] = "-"

	rec := New().ProfitAndLoss(raw)
	m := rec.Metrics
	assert.Nil(t, m.GrossProfit, "missing input leaves the metric undefined")
	assert.Nil(t, m.InterestCoverageRatio, "zero divisor leaves the metric undefined")
	assert.NotNil(t, m.NetProfitMargin)
	assert.Equal(t, 0.0, rec.CamSheet.GrossProfit)
	assert.Contains(t, rec.Quality.Missing, "camSheetObject.grossProfit")
}

func TestProfitAndLoss_PartialTotalsNotInvented(t *testing.T) {
	t.Run("expenses with absent lines", func(t *testing.T) {
		rec := New().ProfitAndLoss(obj{
			"fiscalYearEnd": "2024-03-31",
			"profitAndLoss": obj{
				"income":   obj{"totalIncome": 1000.0},
				"expenses": obj{"financeCosts": 60.0, "depreciationAndAmortization": 40.0},
			},
		})
		q := rec.Quality
		for _, path := range []string{
			"profitAndLoss.expenses.totalExpenses",
			"profitAndLoss.profit.profitBeforeTax",
			"profitAndLoss.profit.ebitda",
		} {
			assert.Contains(t, q.Missing, path)
			assert.NotContains(t, q.Derived, path)
		}
		assert.Equal(t, 0.0, rec.ProfitAndLoss.Profit.ProfitBeforeTax)
		assert.Nil(t, rec.Metrics.EbitdaMargin)
		assert.Nil(t, rec.Metrics.Ebit)
	})

	t.Run("income without other income", func(t *testing.T) {
		rec := New().ProfitAndLoss(obj{
			"fiscalYearEnd": "2024-03-31",
			"profitAndLoss": obj{
				"income": obj{"revenueFromOperations": 1000.0},
				"profit": obj{"profitAfterTax": 100.0},
			},
		})
		assert.Contains(t, rec.Quality.Missing, "profitAndLoss.income.totalIncome")
		assert.Equal(t, 0.0, rec.ProfitAndLoss.Income.TotalIncome)
		assert.Nil(t, rec.Metrics.NetProfitMargin)
	})

	t.Run("low-confidence term marks the computed total", func(t *testing.T) {
		rec := New().ProfitAndLoss(obj{
			"fiscalYearEnd": "2024-03-31",
			"profitAndLoss": obj{
				"income": obj{"revenueFromOperations": obj{"value": 1000.0, "confidence": 0.6}, "otherIncome": 0.0},
				"profit": obj{"profitAfterTax": 100.0},
			},
		})
		assert.Equal(t, 1000.0, rec.ProfitAndLoss.Income.TotalIncome)
		assert.Contains(t, rec.Quality.Derived, "profitAndLoss.income.totalIncome")
		assert.Contains(t, rec.Quality.LowConfidence, "profitAndLoss.income.totalIncome")
		assert.Nil(t, rec.Metrics.NetProfitMargin)
	})
}

func TestProfitAndLoss_LowConfidenceBlocksMetric(t *testing.T) {
	raw := pnlRaw()
	raw["profitAndLoss"].(obj)["profit"].(obj)["profitAfterTax"] = obj{"value": 150.0, "confidence": 0.5}

	rec := New().ProfitAndLoss(raw)
	assert.Nil(t, rec.Metrics.NetProfitMargin)
	assert.Contains(t, rec.Quality.LowConfidence, "camSheetObject.netProfit")
}

func TestReconcile_RecordShape(t *testing.T) {
	raw := bsRaw(obj{})
	raw["summary"] = strings.Repeat("liquidity improved ", 60)

	r, err := New().Reconcile(raw, models.BalanceSheet)
	require.NoError(t, err)
	rec, ok := r.(*models.BalanceSheetRecord)
	require.True(t, ok)
	assert.Equal(t, "Acme Traders", rec.CompanyName)
	assert.LessOrEqual(t, len([]rune(rec.Summary)), SummaryLimit)
	assert.Len(t, rec.Quality.Missing, len(balanceSheetSchema.Fields())+len(balanceSheetCamFallbacks))

	_, err = New().Reconcile(raw, models.DocumentKind("XLS"))
	assert.Error(t, err)
}

func TestReconcile_UnreadableFiscalYear(t *testing.T) {
	raw := bsRaw(obj{})
	raw["fiscalYearEnd"] = "sometime last year"
	rec := New().BalanceSheet(raw)
	assert.True(t, rec.FiscalYearEnd.IsZero())
	assert.Contains(t, strings.Join(rec.Quality.Issues, "\n"), "fiscalYearEnd")
}

func TestSchemaBindings(t *testing.T) {
	bsTargets := balanceSheetFields(&models.BalanceSheetData{})
	for _, p := range balanceSheetSchema.Fields() {
		assert.Contains(t, bsTargets, p)
	}
	assert.Len(t, bsTargets, len(balanceSheetSchema.Fields()))

	pnlTargets := profitAndLossFields(&models.ProfitAndLossData{})
	for _, p := range profitAndLossSchema.Fields() {
		assert.Contains(t, pnlTargets, p)
	}
	assert.Len(t, pnlTargets, len(profitAndLossSchema.Fields()))

	for _, schema := range []*Schema{balanceSheetSchema, profitAndLossSchema} {
		for _, r := range schema.Rollups {
			assert.Contains(t, schema.Fields(), r.Total)
			for _, term := range r.Terms {
				assert.Contains(t, schema.Fields(), term.Path)
			}
		}
	}
}

func TestSchemaResolve(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Sundry Creditors", "balanceSheet.currentLiabilities.tradePayables"},
		{"Reserves & Surplus", "balanceSheet.shareholdersFunds.reservesAndSurplus"},
		{"Property, Plant and Equipment", "balanceSheet.nonCurrentAssets.tangibleAssets"},
		{"Capital work-in-progress", "balanceSheet.nonCurrentAssets.capitalWorkInProgress"},
		{"shortTermBorrowings", "balanceSheet.currentLiabilities.shortTermBorrowings"},
		{"Trade Receivables (Note 14)", "balanceSheet.currentAssets.tradeReceivables"},
		{"5. Inventories", "balanceSheet.currentAssets.inventories"},
	}
	for _, tt := range tests {
		got, ok := balanceSheetSchema.Resolve(tt.label)
		assert.True(t, ok, tt.label)
		assert.Equal(t, tt.want, got, tt.label)
	}

	got, ok := profitAndLossSchema.Resolve("Depreciation and Amortisation Expense")
	assert.True(t, ok)
	assert.Equal(t, "profitAndLoss.expenses.depreciationAndAmortization", got)

	_, ok = balanceSheetSchema.Resolve("Goodwill")
	assert.False(t, ok)
	_, ok = balanceSheetSchema.Resolve("")
	assert.False(t, ok)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,234.50", 1234.5, true},
		{"(120)", -120, true},
		{"₹ 2,00,000", 200000, true},
		{"Rs. 45", 45, true},
		{"-75", -75, true},
		{"350-", -350, true},
		{"twelve", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseAmount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseFiscalYearEnd(t *testing.T) {
	march31 := models.NewDate(2024, time.March, 31)
	tests := []struct {
		in   interface{}
		want models.Date
		ok   bool
	}{
		{"2024-03-31", march31, true},
		{"31-03-2024", march31, true},
		{"31/03/2024", march31, true},
		{"March 31, 2024", march31, true},
		{"31 March 2024", march31, true},
		{"31st March 2024", march31, true},
		{"As at 31-Mar-2024", march31, true},
		{"2024", march31, true},
		{2024.0, march31, true},
		{"FY 2023-24", march31, true},
		{"2023-2024", march31, true},
		{"2024-12-31", models.NewDate(2024, time.December, 31), true},
		{"2021-2024", models.Date{}, false},
		{"", models.Date{}, false},
		{true, models.Date{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseFiscalYearEnd(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}
