package models

import (
	"fmt"
	"strings"
	"time"
)

// DocumentKind identifies which financial statement a document carries.
type DocumentKind string

const (
	BalanceSheet  DocumentKind = "BS"
	ProfitAndLoss DocumentKind = "PNL"
)

func (k DocumentKind) String() string {
	switch k {
	case BalanceSheet:
		return "balance-sheet"
	case ProfitAndLoss:
		return "pnl-sheet"
	}
	return string(k)
}

// ParseDocumentKind accepts the short codes and the task-level names.
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bs", "balance-sheet", "balancesheet", "balance_sheet":
		return BalanceSheet, nil
	case "pnl", "pnl-sheet", "profitandloss", "profit-and-loss", "profit_and_loss":
		return ProfitAndLoss, nil
	}
	return "", fmt.Errorf("unknown document kind %q", s)
}

// RecordKey is the identity of a persisted financial record.
type RecordKey struct {
	CompanyIdentifier string
	FiscalYearEnd     Date
	Kind              DocumentKind
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.CompanyIdentifier, k.FiscalYearEnd, k.Kind)
}

// Record is implemented by both canonical statement variants.
type Record interface {
	Kind() DocumentKind
	Key() RecordKey
	Validate() error
}

// Quality is the side channel describing how a record's values were
// obtained. Paths are dotted JSON paths relative to the record.
type Quality struct {
	Missing            []string `json:"missing,omitempty"`
	LowConfidence      []string `json:"lowConfidence,omitempty"`
	AlignmentConflicts []string `json:"alignmentConflicts,omitempty"`
	Derived            []string `json:"derived,omitempty"`
	Issues             []string `json:"issues,omitempty"`
}

// Unavailable reports whether the value at path should not be trusted
// for derived figures.
func (q Quality) Unavailable(path string) bool {
	return contains(q.Missing, path) || contains(q.LowConfidence, path)
}

func (q Quality) IsDerived(path string) bool { return contains(q.Derived, path) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// --- Balance sheet ---

type ShareholdersFunds struct {
	ShareCapital           float64 `json:"shareCapital"`
	ReservesAndSurplus     float64 `json:"reservesAndSurplus"`
	TotalShareholdersFunds float64 `json:"totalShareholdersFunds"`
}

type NonCurrentLiabilities struct {
	LongTermBorrowings         float64 `json:"longTermBorrowings"`
	OtherLongTermLiabilities   float64 `json:"otherLongTermLiabilities"`
	DeferredTaxLiability       float64 `json:"deferredTaxLiability"`
	TotalNonCurrentLiabilities float64 `json:"totalNonCurrentLiabilities"`
}

type CurrentLiabilities struct {
	ShortTermBorrowings     float64 `json:"shortTermBorrowings"`
	TradePayables           float64 `json:"tradePayables"`
	OtherCurrentLiabilities float64 `json:"otherCurrentLiabilities"`
	ShortTermProvisions     float64 `json:"shortTermProvisions"`
	TotalCurrentLiabilities float64 `json:"totalCurrentLiabilities"`
}

type NonCurrentAssets struct {
	TangibleAssets           float64 `json:"tangibleAssets"`
	IntangibleAssets         float64 `json:"intangibleAssets"`
	CapitalWorkInProgress    float64 `json:"capitalWorkInProgress"`
	NonCurrentInvestments    float64 `json:"nonCurrentInvestments"`
	DeferredTaxAssets        float64 `json:"deferredTaxAssets"`
	LongTermLoansAndAdvances float64 `json:"longTermLoansAndAdvances"`
	TotalNonCurrentAssets    float64 `json:"totalNonCurrentAssets"`
}

type CurrentAssets struct {
	CurrentInvestments        float64 `json:"currentInvestments"`
	Inventories               float64 `json:"inventories"`
	TradeReceivables          float64 `json:"tradeReceivables"`
	CashAndCashEquivalents    float64 `json:"cashAndCashEquivalents"`
	ShortTermLoansAndAdvances float64 `json:"shortTermLoansAndAdvances"`
	OtherCurrentAssets        float64 `json:"otherCurrentAssets"`
	TotalCurrentAssets        float64 `json:"totalCurrentAssets"`
}

type BalanceSheetData struct {
	ShareholdersFunds     ShareholdersFunds     `json:"shareholdersFunds"`
	NonCurrentLiabilities NonCurrentLiabilities `json:"nonCurrentLiabilities"`
	CurrentLiabilities    CurrentLiabilities    `json:"currentLiabilities"`
	TotalLiabilities      float64               `json:"totalLiabilities"`
	NonCurrentAssets      NonCurrentAssets      `json:"nonCurrentAssets"`
	CurrentAssets         CurrentAssets         `json:"currentAssets"`
	TotalAssets           float64               `json:"totalAssets"`
}

// BalanceSheetCam is the credit-appraisal extract of a balance sheet.
type BalanceSheetCam struct {
	Receivable           float64 `json:"receivable"`
	Payables             float64 `json:"payables"`
	Inventory            float64 `json:"inventory"`
	CurrentAssets        float64 `json:"currentAssets"`
	CurrentLiabilities   float64 `json:"currentLiabilities"`
	LoansAndAdvancesInBs float64 `json:"loansAndAdvancesInBs"`
	LongTermDebt         float64 `json:"longTermDebt"`
	ShortTermDebt        float64 `json:"shortTermDebt"`
	CurrentDebt          float64 `json:"currentDebt"`
	Equity               float64 `json:"equity"`
}

type BalanceSheetRecord struct {
	CompanyIdentifier string           `json:"companyGst" validate:"required,gstin"`
	CompanyName       string           `json:"companyName"`
	FiscalYearEnd     Date             `json:"fiscalYearEnd" validate:"required"`
	BalanceSheet      BalanceSheetData `json:"balanceSheet"`
	CamSheet          BalanceSheetCam  `json:"camSheetObject"`
	Summary           string           `json:"summary" validate:"max=500"`
	Quality           Quality          `json:"quality"`
	CreatedAt         time.Time        `json:"-"`
	UpdatedAt         time.Time        `json:"-"`
}

func (r *BalanceSheetRecord) Kind() DocumentKind { return BalanceSheet }

func (r *BalanceSheetRecord) Key() RecordKey {
	return RecordKey{CompanyIdentifier: r.CompanyIdentifier, FiscalYearEnd: r.FiscalYearEnd, Kind: BalanceSheet}
}

func (r *BalanceSheetRecord) Validate() error { return validateRecord(r) }

// --- Profit and loss ---

type Income struct {
	RevenueFromOperations float64 `json:"revenueFromOperations"`
	OtherIncome           float64 `json:"otherIncome"`
	TotalIncome           float64 `json:"totalIncome"`
}

type Expenses struct {
	CostOfMaterialsConsumed     float64 `json:"costOfMaterialsConsumed"`
	PurchaseOfStockInTrade      float64 `json:"purchaseOfStockInTrade"`
	ChangesInInventory          float64 `json:"changesInInventory"`
	EmployeeBenefitExpenses     float64 `json:"employeeBenefitExpenses"`
	FinanceCosts                float64 `json:"financeCosts"`
	DepreciationAndAmortization float64 `json:"depreciationAndAmortization"`
	OtherExpenses               float64 `json:"otherExpenses"`
	TotalExpenses               float64 `json:"totalExpenses"`
}

type Profit struct {
	Ebitda             float64 `json:"ebitda"`
	ProfitBeforeTax    float64 `json:"profitBeforeTax"`
	TaxExpenseCurrent  float64 `json:"taxExpenseCurrent"`
	TaxExpenseDeferred float64 `json:"taxExpenseDeferred"`
	TotalTaxExpense    float64 `json:"totalTaxExpense"`
	ProfitAfterTax     float64 `json:"profitAfterTax"`
}

type EarningsPerShare struct {
	BasicEPS   float64 `json:"basicEPS"`
	DilutedEPS float64 `json:"dilutedEPS"`
}

type ProfitAndLossData struct {
	Income           Income           `json:"income"`
	Expenses         Expenses         `json:"expenses"`
	Profit           Profit           `json:"profit"`
	EarningsPerShare EarningsPerShare `json:"earningsPerShare"`
}

// PnlMetrics are derived after reconciliation. A nil value means one of
// its inputs was missing or the divisor was zero.
type PnlMetrics struct {
	GrossProfit           *float64 `json:"grossProfit"`
	Ebit                  *float64 `json:"ebit"`
	EbitdaMargin          *float64 `json:"ebitdaMargin"`
	NetProfitMargin       *float64 `json:"netProfitMargin"`
	InterestCoverageRatio *float64 `json:"interestCoverageRatio"`
}

type ProfitAndLossCam struct {
	Turnover         float64 `json:"turnover"`
	GrossProfit      float64 `json:"grossProfit"`
	InterestExpenses float64 `json:"interestExpenses"`
	NetProfit        float64 `json:"netProfit"`
}

type ProfitAndLossRecord struct {
	CompanyIdentifier string            `json:"companyGst" validate:"required,gstin"`
	CompanyName       string            `json:"companyName"`
	FiscalYearEnd     Date              `json:"fiscalYearEnd" validate:"required"`
	ProfitAndLoss     ProfitAndLossData `json:"profitAndLoss"`
	Metrics           PnlMetrics        `json:"pnlMetricsObject"`
	CamSheet          ProfitAndLossCam  `json:"camSheetObject"`
	Summary           string            `json:"summary" validate:"max=500"`
	Quality           Quality           `json:"quality"`
	CreatedAt         time.Time         `json:"-"`
	UpdatedAt         time.Time         `json:"-"`
}

func (r *ProfitAndLossRecord) Kind() DocumentKind { return ProfitAndLoss }

func (r *ProfitAndLossRecord) Key() RecordKey {
	return RecordKey{CompanyIdentifier: r.CompanyIdentifier, FiscalYearEnd: r.FiscalYearEnd, Kind: ProfitAndLoss}
}

func (r *ProfitAndLossRecord) Validate() error { return validateRecord(r) }
