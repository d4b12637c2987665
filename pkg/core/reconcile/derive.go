package reconcile

import (
	"financial_underwriting/pkg/core/utils"
	"financial_underwriting/pkg/models"
)

const camRoot = "camSheetObject."

func balanceSheetFields(d *models.BalanceSheetData) map[string]*float64 {
	return map[string]*float64{
		bs("shareholdersFunds.shareCapital"):                   &d.ShareholdersFunds.ShareCapital,
		bs("shareholdersFunds.reservesAndSurplus"):             &d.ShareholdersFunds.ReservesAndSurplus,
		bs("shareholdersFunds.totalShareholdersFunds"):         &d.ShareholdersFunds.TotalShareholdersFunds,
		bs("nonCurrentLiabilities.longTermBorrowings"):         &d.NonCurrentLiabilities.LongTermBorrowings,
		bs("nonCurrentLiabilities.otherLongTermLiabilities"):   &d.NonCurrentLiabilities.OtherLongTermLiabilities,
		bs("nonCurrentLiabilities.deferredTaxLiability"):       &d.NonCurrentLiabilities.DeferredTaxLiability,
		bs("nonCurrentLiabilities.totalNonCurrentLiabilities"): &d.NonCurrentLiabilities.TotalNonCurrentLiabilities,
		bs("currentLiabilities.shortTermBorrowings"):           &d.CurrentLiabilities.ShortTermBorrowings,
		bs("currentLiabilities.tradePayables"):                 &d.CurrentLiabilities.TradePayables,
		bs("currentLiabilities.otherCurrentLiabilities"):       &d.CurrentLiabilities.OtherCurrentLiabilities,
		bs("currentLiabilities.shortTermProvisions"):           &d.CurrentLiabilities.ShortTermProvisions,
		bs("currentLiabilities.totalCurrentLiabilities"):       &d.CurrentLiabilities.TotalCurrentLiabilities,
		bs("totalLiabilities"):                                 &d.TotalLiabilities,
		bs("nonCurrentAssets.tangibleAssets"):                  &d.NonCurrentAssets.TangibleAssets,
		bs("nonCurrentAssets.intangibleAssets"):                &d.NonCurrentAssets.IntangibleAssets,
		bs("nonCurrentAssets.capitalWorkInProgress"):           &d.NonCurrentAssets.CapitalWorkInProgress,
		bs("nonCurrentAssets.nonCurrentInvestments"):           &d.NonCurrentAssets.NonCurrentInvestments,
		bs("nonCurrentAssets.deferredTaxAssets"):               &d.NonCurrentAssets.DeferredTaxAssets,
		bs("nonCurrentAssets.longTermLoansAndAdvances"):        &d.NonCurrentAssets.LongTermLoansAndAdvances,
		bs("nonCurrentAssets.totalNonCurrentAssets"):           &d.NonCurrentAssets.TotalNonCurrentAssets,
		bs("currentAssets.currentInvestments"):                 &d.CurrentAssets.CurrentInvestments,
		bs("currentAssets.inventories"):                        &d.CurrentAssets.Inventories,
		bs("currentAssets.tradeReceivables"):                   &d.CurrentAssets.TradeReceivables,
		bs("currentAssets.cashAndCashEquivalents"):             &d.CurrentAssets.CashAndCashEquivalents,
		bs("currentAssets.shortTermLoansAndAdvances"):          &d.CurrentAssets.ShortTermLoansAndAdvances,
		bs("currentAssets.otherCurrentAssets"):                 &d.CurrentAssets.OtherCurrentAssets,
		bs("currentAssets.totalCurrentAssets"):                 &d.CurrentAssets.TotalCurrentAssets,
		bs("totalAssets"):                                      &d.TotalAssets,
	}
}

func profitAndLossFields(d *models.ProfitAndLossData) map[string]*float64 {
	return map[string]*float64{
		pnl("income.revenueFromOperations"):         &d.Income.RevenueFromOperations,
		pnl("income.otherIncome"):                   &d.Income.OtherIncome,
		pnl("income.totalIncome"):                   &d.Income.TotalIncome,
		pnl("expenses.costOfMaterialsConsumed"):     &d.Expenses.CostOfMaterialsConsumed,
		pnl("expenses.purchaseOfStockInTrade"):      &d.Expenses.PurchaseOfStockInTrade,
		pnl("expenses.changesInInventory"):          &d.Expenses.ChangesInInventory,
		pnl("expenses.employeeBenefitExpenses"):     &d.Expenses.EmployeeBenefitExpenses,
		pnl("expenses.financeCosts"):                &d.Expenses.FinanceCosts,
		pnl("expenses.depreciationAndAmortization"): &d.Expenses.DepreciationAndAmortization,
		pnl("expenses.otherExpenses"):               &d.Expenses.OtherExpenses,
		pnl("expenses.totalExpenses"):               &d.Expenses.TotalExpenses,
		pnl("profit.ebitda"):                        &d.Profit.Ebitda,
		pnl("profit.profitBeforeTax"):               &d.Profit.ProfitBeforeTax,
		pnl("profit.taxExpenseCurrent"):             &d.Profit.TaxExpenseCurrent,
		pnl("profit.taxExpenseDeferred"):            &d.Profit.TaxExpenseDeferred,
		pnl("profit.totalTaxExpense"):               &d.Profit.TotalTaxExpense,
		pnl("profit.profitAfterTax"):                &d.Profit.ProfitAfterTax,
		pnl("earningsPerShare.basicEPS"):            &d.EarningsPerShare.BasicEPS,
		pnl("earningsPerShare.dilutedEPS"):          &d.EarningsPerShare.DilutedEPS,
	}
}

// camFallback names the reconciled rows a camSheet field falls back to
// when the extraction left it out.
type camFallback struct {
	key     string
	target  func(c *models.BalanceSheetCam) *float64
	sources []string
}

var balanceSheetCamFallbacks = []camFallback{
	{"receivable", func(c *models.BalanceSheetCam) *float64 { return &c.Receivable }, []string{bs("currentAssets.tradeReceivables")}},
	{"payables", func(c *models.BalanceSheetCam) *float64 { return &c.Payables }, []string{bs("currentLiabilities.tradePayables")}},
	{"inventory", func(c *models.BalanceSheetCam) *float64 { return &c.Inventory }, []string{bs("currentAssets.inventories")}},
	{"currentAssets", func(c *models.BalanceSheetCam) *float64 { return &c.CurrentAssets }, []string{bs("currentAssets.totalCurrentAssets")}},
	{"currentLiabilities", func(c *models.BalanceSheetCam) *float64 { return &c.CurrentLiabilities }, []string{bs("currentLiabilities.totalCurrentLiabilities")}},
	{"loansAndAdvancesInBs", func(c *models.BalanceSheetCam) *float64 { return &c.LoansAndAdvancesInBs }, []string{
		bs("nonCurrentAssets.longTermLoansAndAdvances"), bs("currentAssets.shortTermLoansAndAdvances"),
	}},
	{"longTermDebt", func(c *models.BalanceSheetCam) *float64 { return &c.LongTermDebt }, []string{bs("nonCurrentLiabilities.longTermBorrowings")}},
	{"shortTermDebt", func(c *models.BalanceSheetCam) *float64 { return &c.ShortTermDebt }, []string{bs("currentLiabilities.shortTermBorrowings")}},
	{"currentDebt", func(c *models.BalanceSheetCam) *float64 { return &c.CurrentDebt }, []string{bs("currentLiabilities.totalCurrentLiabilities")}},
	{"equity", func(c *models.BalanceSheetCam) *float64 { return &c.Equity }, []string{bs("shareholdersFunds.totalShareholdersFunds")}},
}

// balanceSheetCam keeps camSheet values the extraction supplied and fills
// the rest from the reconciled statement.
func (s *sheet) balanceSheetCam(raw map[string]interface{}, cam *models.BalanceSheetCam) {
	supplied, _ := raw["camSheetObject"].(map[string]interface{})
	for _, fb := range balanceSheetCamFallbacks {
		path := camRoot + fb.key
		c := parseCell(supplied[fb.key])
		switch c.kind {
		case cellNumber:
			*fb.target(cam) = c.value
			if best, ok := pickReading(c); ok {
				*fb.target(cam) = best.value
				if best.confidence < MinConfidence {
					s.quality.LowConfidence = append(s.quality.LowConfidence, path)
				}
			}
			continue
		case cellDash:
			continue
		}

		var sum float64
		missing, low := true, false
		for _, src := range fb.sources {
			f := s.fields[src]
			sum += f.value
			missing = missing && f.missing
			low = low || f.lowConfidence
		}
		*fb.target(cam) = sum
		switch {
		case missing:
			s.quality.Missing = append(s.quality.Missing, path)
		case low:
			s.quality.LowConfidence = append(s.quality.LowConfidence, path)
			s.quality.Derived = append(s.quality.Derived, path)
		default:
			s.quality.Derived = append(s.quality.Derived, path)
		}
	}
}

// deriveEbitda fills a missing EBITDA from profit before tax, finance
// costs and depreciation.
func (s *sheet) deriveEbitda() {
	ebitda := pnl("profit.ebitda")
	if !s.fields[ebitda].missing {
		return
	}
	inputs := []string{pnl("profit.profitBeforeTax"), pnl("expenses.financeCosts"), pnl("expenses.depreciationAndAmortization")}
	var sum float64
	for _, p := range inputs {
		if s.unavailable(p) {
			return
		}
		sum += s.value(p)
	}
	s.derive(ebitda, sum)
}

// pnlMetrics computes the derived profitability figures. A metric with an
// unavailable input, or a zero divisor, is nil.
func (s *sheet) pnlMetrics() models.PnlMetrics {
	var (
		totalIncome = pnl("income.totalIncome")
		materials   = pnl("expenses.costOfMaterialsConsumed")
		purchases   = pnl("expenses.purchaseOfStockInTrade")
		inventory   = pnl("expenses.changesInInventory")
		finance     = pnl("expenses.financeCosts")
		depreciate  = pnl("expenses.depreciationAndAmortization")
		ebitda      = pnl("profit.ebitda")
		pat         = pnl("profit.profitAfterTax")
	)
	avail := func(paths ...string) bool {
		for _, p := range paths {
			if s.unavailable(p) {
				return false
			}
		}
		return true
	}
	ratio := func(num, den, scale float64) *float64 {
		if den == 0 {
			return nil
		}
		return utils.Float(utils.Round2(num / den * scale))
	}

	var m models.PnlMetrics
	if avail(totalIncome, materials, purchases, inventory) {
		gp := s.value(totalIncome) - (s.value(materials) + s.value(purchases) + s.value(inventory))
		m.GrossProfit = utils.Float(utils.Round2(gp))
	}
	if avail(ebitda, depreciate) {
		ebit := s.value(ebitda) - s.value(depreciate)
		m.Ebit = utils.Float(utils.Round2(ebit))
		if avail(finance) {
			m.InterestCoverageRatio = ratio(ebit, s.value(finance), 1)
		}
	}
	if avail(ebitda, totalIncome) {
		m.EbitdaMargin = ratio(s.value(ebitda), s.value(totalIncome), 100)
	}
	if avail(pat, totalIncome) {
		m.NetProfitMargin = ratio(s.value(pat), s.value(totalIncome), 100)
	}
	return m
}

// profitAndLossCam copies the credit-appraisal figures from the statement.
func (s *sheet) profitAndLossCam(rec *models.ProfitAndLossRecord) {
	copyFrom := func(key, src string, dst *float64) {
		*dst = s.value(src)
		switch {
		case s.fields[src].missing:
			s.quality.Missing = append(s.quality.Missing, camRoot+key)
		case s.fields[src].lowConfidence:
			s.quality.LowConfidence = append(s.quality.LowConfidence, camRoot+key)
		}
	}
	copyFrom("turnover", pnl("income.totalIncome"), &rec.CamSheet.Turnover)
	copyFrom("interestExpenses", pnl("expenses.financeCosts"), &rec.CamSheet.InterestExpenses)
	copyFrom("netProfit", pnl("profit.profitAfterTax"), &rec.CamSheet.NetProfit)

	if rec.Metrics.GrossProfit != nil {
		rec.CamSheet.GrossProfit = *rec.Metrics.GrossProfit
	} else {
		s.quality.Missing = append(s.quality.Missing, camRoot+"grossProfit")
	}
}
