package reconcile

import (
	"regexp"
	"strings"
	"unicode"

	"financial_underwriting/pkg/models"
)

// Section is a group of rows printed together on the statement, in print
// order. Total is the section's own total row, if any.
type Section struct {
	Name  string
	Rows  []string
	Total string
	// Exclusive sections apply the sibling-row guard. Basic and diluted EPS
	// are routinely identical, so that section is not exclusive.
	Exclusive bool
}

// Term is one signed component of a rollup.
type Term struct {
	Path string
	Sign float64
}

// Rollup declares Total = sum of Terms. Rollups are listed bottom-up.
type Rollup struct {
	Total string
	Terms []Term
}

// Schema describes one statement kind.
type Schema struct {
	Kind     models.DocumentKind
	Sections []Section
	// Standalone are top-level numeric rows outside any section.
	Standalone []string
	Rollups    []Rollup
	synonyms   map[string]string
	totals     map[string]bool
}

func plus(paths ...string) []Term {
	terms := make([]Term, len(paths))
	for i, p := range paths {
		terms[i] = Term{Path: p, Sign: 1}
	}
	return terms
}

// Fields lists every numeric path in print order.
func (s *Schema) Fields() []string {
	var out []string
	for _, sec := range s.Sections {
		out = append(out, sec.Rows...)
	}
	return append(out, s.Standalone...)
}

// IsTotal reports whether path is the total of some rollup.
func (s *Schema) IsTotal(path string) bool { return s.totals[path] }

// Resolve maps a printed label (or a camelCase field name) to a path.
func (s *Schema) Resolve(label string) (string, bool) {
	key := normalizeLabel(label)
	if key == "" {
		return "", false
	}
	p, ok := s.synonyms[key]
	return p, ok
}

func (s *Schema) init(synonyms map[string][]string) *Schema {
	s.totals = make(map[string]bool)
	for _, r := range s.Rollups {
		s.totals[r.Total] = true
	}
	s.synonyms = make(map[string]string)
	for _, path := range s.Fields() {
		leaf := path[strings.LastIndexByte(path, '.')+1:]
		s.synonyms[normalizeLabel(leaf)] = path
		s.synonyms[normalizeLabel(path)] = path
	}
	for path, labels := range synonyms {
		for _, l := range labels {
			s.synonyms[normalizeLabel(l)] = path
		}
	}
	return s
}

var (
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	notePrefix    = regexp.MustCompile(`^(note\s*)?[0-9]+[.)]?\s+`)
)

// normalizeLabel lower-cases a label, splits camelCase, drops parenthetical
// remarks and punctuation, and collapses spaces.
func normalizeLabel(label string) string {
	label = parenthetical.ReplaceAllString(label, " ")

	var b strings.Builder
	runes := []rune(label)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteRune(' ')
		}
		switch {
		case r == '&':
			b.WriteString(" and ")
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '\'' || r == '’':
		default:
			b.WriteRune(' ')
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	return notePrefix.ReplaceAllString(out, "")
}

const (
	bsRoot  = "balanceSheet."
	pnlRoot = "profitAndLoss."
)

func bs(p string) string  { return bsRoot + p }
func pnl(p string) string { return pnlRoot + p }

var balanceSheetSchema = (&Schema{
	Kind: models.BalanceSheet,
	Sections: []Section{
		{
			Name:      bs("shareholdersFunds"),
			Rows:      []string{bs("shareholdersFunds.shareCapital"), bs("shareholdersFunds.reservesAndSurplus"), bs("shareholdersFunds.totalShareholdersFunds")},
			Total:     bs("shareholdersFunds.totalShareholdersFunds"),
			Exclusive: true,
		},
		{
			Name: bs("nonCurrentLiabilities"),
			Rows: []string{
				bs("nonCurrentLiabilities.longTermBorrowings"), bs("nonCurrentLiabilities.otherLongTermLiabilities"),
				bs("nonCurrentLiabilities.deferredTaxLiability"), bs("nonCurrentLiabilities.totalNonCurrentLiabilities"),
			},
			Total:     bs("nonCurrentLiabilities.totalNonCurrentLiabilities"),
			Exclusive: true,
		},
		{
			Name: bs("currentLiabilities"),
			Rows: []string{
				bs("currentLiabilities.shortTermBorrowings"), bs("currentLiabilities.tradePayables"),
				bs("currentLiabilities.otherCurrentLiabilities"), bs("currentLiabilities.shortTermProvisions"),
				bs("currentLiabilities.totalCurrentLiabilities"),
			},
			Total:     bs("currentLiabilities.totalCurrentLiabilities"),
			Exclusive: true,
		},
		{
			Name: bs("nonCurrentAssets"),
			Rows: []string{
				bs("nonCurrentAssets.tangibleAssets"), bs("nonCurrentAssets.intangibleAssets"),
				bs("nonCurrentAssets.capitalWorkInProgress"), bs("nonCurrentAssets.nonCurrentInvestments"),
				bs("nonCurrentAssets.deferredTaxAssets"), bs("nonCurrentAssets.longTermLoansAndAdvances"),
				bs("nonCurrentAssets.totalNonCurrentAssets"),
			},
			Total:     bs("nonCurrentAssets.totalNonCurrentAssets"),
			Exclusive: true,
		},
		{
			Name: bs("currentAssets"),
			Rows: []string{
				bs("currentAssets.currentInvestments"), bs("currentAssets.inventories"),
				bs("currentAssets.tradeReceivables"), bs("currentAssets.cashAndCashEquivalents"),
				bs("currentAssets.shortTermLoansAndAdvances"), bs("currentAssets.otherCurrentAssets"),
				bs("currentAssets.totalCurrentAssets"),
			},
			Total:     bs("currentAssets.totalCurrentAssets"),
			Exclusive: true,
		},
	},
	Standalone: []string{bs("totalLiabilities"), bs("totalAssets")},
	Rollups: []Rollup{
		{Total: bs("shareholdersFunds.totalShareholdersFunds"), Terms: plus(bs("shareholdersFunds.shareCapital"), bs("shareholdersFunds.reservesAndSurplus"))},
		{Total: bs("nonCurrentLiabilities.totalNonCurrentLiabilities"), Terms: plus(
			bs("nonCurrentLiabilities.longTermBorrowings"), bs("nonCurrentLiabilities.otherLongTermLiabilities"),
			bs("nonCurrentLiabilities.deferredTaxLiability"))},
		{Total: bs("currentLiabilities.totalCurrentLiabilities"), Terms: plus(
			bs("currentLiabilities.shortTermBorrowings"), bs("currentLiabilities.tradePayables"),
			bs("currentLiabilities.otherCurrentLiabilities"), bs("currentLiabilities.shortTermProvisions"))},
		{Total: bs("nonCurrentAssets.totalNonCurrentAssets"), Terms: plus(
			bs("nonCurrentAssets.tangibleAssets"), bs("nonCurrentAssets.intangibleAssets"),
			bs("nonCurrentAssets.capitalWorkInProgress"), bs("nonCurrentAssets.nonCurrentInvestments"),
			bs("nonCurrentAssets.deferredTaxAssets"), bs("nonCurrentAssets.longTermLoansAndAdvances"))},
		{Total: bs("currentAssets.totalCurrentAssets"), Terms: plus(
			bs("currentAssets.currentInvestments"), bs("currentAssets.inventories"),
			bs("currentAssets.tradeReceivables"), bs("currentAssets.cashAndCashEquivalents"),
			bs("currentAssets.shortTermLoansAndAdvances"), bs("currentAssets.otherCurrentAssets"))},
		{Total: bs("totalLiabilities"), Terms: plus(
			bs("shareholdersFunds.totalShareholdersFunds"), bs("nonCurrentLiabilities.totalNonCurrentLiabilities"),
			bs("currentLiabilities.totalCurrentLiabilities"))},
		{Total: bs("totalAssets"), Terms: plus(bs("nonCurrentAssets.totalNonCurrentAssets"), bs("currentAssets.totalCurrentAssets"))},
	},
}).init(map[string][]string{
	bs("shareholdersFunds.shareCapital"):                   {"Equity Share Capital", "Capital Account", "Partners Capital", "Proprietor's Capital", "Capital"},
	bs("shareholdersFunds.reservesAndSurplus"):             {"Reserves & Surplus", "Other Equity", "Retained Earnings"},
	bs("shareholdersFunds.totalShareholdersFunds"):         {"Shareholders' Funds", "Total Equity", "Net Worth"},
	bs("nonCurrentLiabilities.longTermBorrowings"):         {"Secured Loans", "Unsecured Loans", "Term Loans", "Loans (Liability)"},
	bs("nonCurrentLiabilities.otherLongTermLiabilities"):   {"Other Non-Current Liabilities"},
	bs("nonCurrentLiabilities.deferredTaxLiability"):       {"Deferred Tax Liabilities (Net)", "Deferred Tax Liabilities"},
	bs("nonCurrentLiabilities.totalNonCurrentLiabilities"): {"Non-Current Liabilities"},
	bs("currentLiabilities.shortTermBorrowings"):           {"Bank Overdraft", "Cash Credit", "Secured / OD / CC", "OD/CC", "Working Capital Loans"},
	bs("currentLiabilities.tradePayables"):                 {"Sundry Creditors", "Creditors", "Accounts Payable"},
	bs("currentLiabilities.shortTermProvisions"):           {"Provisions"},
	bs("currentLiabilities.totalCurrentLiabilities"):       {"Current Liabilities"},
	bs("totalLiabilities"):                                 {"Total Equity and Liabilities"},
	bs("nonCurrentAssets.tangibleAssets"):                  {"Property, Plant and Equipment", "Fixed Assets", "Net Block"},
	bs("nonCurrentAssets.capitalWorkInProgress"):           {"Capital Work-in-Progress", "CWIP"},
	bs("nonCurrentAssets.nonCurrentInvestments"):           {"Long Term Investments", "Investments"},
	bs("nonCurrentAssets.deferredTaxAssets"):               {"Deferred Tax Assets (Net)"},
	bs("nonCurrentAssets.totalNonCurrentAssets"):           {"Non-Current Assets"},
	bs("currentAssets.inventories"):                        {"Inventory", "Closing Stock", "Stock-in-Trade"},
	bs("currentAssets.tradeReceivables"):                   {"Sundry Debtors", "Debtors", "Accounts Receivable"},
	bs("currentAssets.cashAndCashEquivalents"):             {"Cash and Bank Balances", "Cash & Bank Balances", "Cash in Hand", "Bank Balances"},
	bs("currentAssets.shortTermLoansAndAdvances"):          {"Loans and Advances", "Loans & Advances (Asset)"},
	bs("currentAssets.totalCurrentAssets"):                 {"Current Assets"},
})

var profitAndLossSchema = (&Schema{
	Kind: models.ProfitAndLoss,
	Sections: []Section{
		{
			Name:      pnl("income"),
			Rows:      []string{pnl("income.revenueFromOperations"), pnl("income.otherIncome"), pnl("income.totalIncome")},
			Total:     pnl("income.totalIncome"),
			Exclusive: true,
		},
		{
			Name: pnl("expenses"),
			Rows: []string{
				pnl("expenses.costOfMaterialsConsumed"), pnl("expenses.purchaseOfStockInTrade"),
				pnl("expenses.changesInInventory"), pnl("expenses.employeeBenefitExpenses"),
				pnl("expenses.financeCosts"), pnl("expenses.depreciationAndAmortization"),
				pnl("expenses.otherExpenses"), pnl("expenses.totalExpenses"),
			},
			Total:     pnl("expenses.totalExpenses"),
			Exclusive: true,
		},
		{
			Name: pnl("profit"),
			Rows: []string{
				pnl("profit.ebitda"), pnl("profit.profitBeforeTax"), pnl("profit.taxExpenseCurrent"),
				pnl("profit.taxExpenseDeferred"), pnl("profit.totalTaxExpense"), pnl("profit.profitAfterTax"),
			},
			Total:     pnl("profit.profitAfterTax"),
			Exclusive: true,
		},
		{
			Name: pnl("earningsPerShare"),
			Rows: []string{pnl("earningsPerShare.basicEPS"), pnl("earningsPerShare.dilutedEPS")},
		},
	},
	Rollups: []Rollup{
		{Total: pnl("income.totalIncome"), Terms: plus(pnl("income.revenueFromOperations"), pnl("income.otherIncome"))},
		{Total: pnl("expenses.totalExpenses"), Terms: plus(
			pnl("expenses.costOfMaterialsConsumed"), pnl("expenses.purchaseOfStockInTrade"),
			pnl("expenses.changesInInventory"), pnl("expenses.employeeBenefitExpenses"),
			pnl("expenses.financeCosts"), pnl("expenses.depreciationAndAmortization"),
			pnl("expenses.otherExpenses"))},
		{Total: pnl("profit.totalTaxExpense"), Terms: plus(pnl("profit.taxExpenseCurrent"), pnl("profit.taxExpenseDeferred"))},
		{Total: pnl("profit.profitBeforeTax"), Terms: []Term{{pnl("income.totalIncome"), 1}, {pnl("expenses.totalExpenses"), -1}}},
		{Total: pnl("profit.profitAfterTax"), Terms: []Term{{pnl("profit.profitBeforeTax"), 1}, {pnl("profit.totalTaxExpense"), -1}}},
	},
}).init(map[string][]string{
	pnl("income.revenueFromOperations"):         {"Sales", "Net Sales", "Gross Sales", "Sales Accounts", "Turnover", "Income from Operations"},
	pnl("income.otherIncome"):                   {"Indirect Incomes", "Non-Operating Income"},
	pnl("income.totalIncome"):                   {"Total Revenue"},
	pnl("expenses.costOfMaterialsConsumed"):     {"Raw Material Consumed", "Materials Consumed"},
	pnl("expenses.purchaseOfStockInTrade"):      {"Purchases", "Purchase Accounts", "Purchases of Stock-in-Trade"},
	pnl("expenses.changesInInventory"):          {"Changes in Inventories", "Changes in Inventories of Finished Goods, Work-in-Progress and Stock-in-Trade", "Increase/Decrease in Stock"},
	pnl("expenses.employeeBenefitExpenses"):     {"Employee Benefits Expense", "Salaries and Wages", "Staff Costs"},
	pnl("expenses.financeCosts"):                {"Finance Cost", "Interest", "Interest Expenses", "Interest and Finance Charges", "Bank Charges and Interest"},
	pnl("expenses.depreciationAndAmortization"): {"Depreciation", "Depreciation and Amortisation Expense", "Depreciation and Amortization Expense", "Depreciation and Amortisation"},
	pnl("expenses.otherExpenses"):               {"Indirect Expenses", "Administrative Expenses"},
	pnl("profit.ebitda"):                        {"EBITDA", "Earnings before Interest, Tax, Depreciation and Amortisation"},
	pnl("profit.profitBeforeTax"):               {"PBT", "Net Profit before Tax", "Profit/(Loss) before Tax"},
	pnl("profit.taxExpenseCurrent"):             {"Current Tax"},
	pnl("profit.taxExpenseDeferred"):            {"Deferred Tax"},
	pnl("profit.totalTaxExpense"):               {"Tax Expense", "Total Tax"},
	pnl("profit.profitAfterTax"):                {"PAT", "Profit for the Year", "Net Profit", "Profit/(Loss) for the Year"},
	pnl("earningsPerShare.basicEPS"):            {"Basic", "Basic EPS", "Basic Earnings per Share"},
	pnl("earningsPerShare.dilutedEPS"):          {"Diluted", "Diluted EPS", "Diluted Earnings per Share"},
})

// SchemaFor returns the schema of a document kind.
func SchemaFor(kind models.DocumentKind) (*Schema, bool) {
	switch kind {
	case models.BalanceSheet:
		return balanceSheetSchema, true
	case models.ProfitAndLoss:
		return profitAndLossSchema, true
	}
	return nil, false
}
