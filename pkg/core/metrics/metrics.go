// Package metrics computes the credit-appraisal ratio table for a fiscal
// year and flags each ratio RED or GREEN against fixed thresholds.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"financial_underwriting/pkg/core/utils"
	"financial_underwriting/pkg/models"

	"github.com/dustin/go-humanize"
)

type Flag string

const (
	Red   Flag = "RED"
	Green Flag = "GREEN"
)

// ISCFormula selects how interest-service coverage is computed.
type ISCFormula string

const (
	// ISCDocumented is interest expense over gross profit, as the credit
	// policy documents it.
	ISCDocumented ISCFormula = "documented"
	// ISCStandard is gross profit over interest expense.
	ISCStandard ISCFormula = "standard"
)

func ParseISCFormula(s string) ISCFormula {
	if ISCFormula(strings.ToLower(strings.TrimSpace(s))) == ISCStandard {
		return ISCStandard
	}
	return ISCDocumented
}

// Metric names as they appear in reports.
const (
	ROCE                = "Return on Capital Employed"
	WorkingCapital      = "Total Working Capital"
	CashConversionCycle = "Cash Conversion Cycle"
	QuickRatio          = "Quick Ratio"
	InterestCoverage    = "Interest Service Coverage Ratio"
	Leverage            = "Leverage Ratio"
	DSO                 = "Days Sales Outstanding"
	DPO                 = "Days Payables Outstanding"
	InventoryDays       = "Inventory Days"
	GrossMargin         = "Gross Profit Margin"
	NetMargin           = "Net Profit Margin"
	DebtToEquity        = "Debt to Equity"
)

// Item is one flagged metric in the summary output.
type Item struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
	Note   string `json:"note"`
}

// Result is a computed metric with its rounded value and flag.
type Result struct {
	Metric string
	Value  float64
	Flag   Flag
	Item   Item
}

// FiscalYearReport is the per-year output. PointsOfConcern is always
// serialized, StrongPoints only when non-empty.
type FiscalYearReport struct {
	Year            string      `json:"year"`
	PointsOfConcern []Item      `json:"pointsOfConcern"`
	StrongPoints    []Item      `json:"strongPoints,omitempty"`
	OverallSummary  string      `json:"overallSummary"`
	FiscalYearEnd   models.Date `json:"-"`
	Results         []Result    `json:"-"`

	// Unavailable lists metrics that could not be computed because an
	// input was missing, low-confidence or a divisor was zero.
	Unavailable []string `json:"-"`
}

type unit int

const (
	percent unit = iota
	days
	times
	amount
)

type inputs struct {
	turnover, grossProfit, interest, netProfit       float64
	receivable, payables, inventory                  float64
	currentAssets, currentLiabilities                float64
	longTermDebt, shortTermDebt, currentDebt, equity float64
	avail                                            map[string]bool
}

func (in inputs) has(names ...string) bool {
	for _, n := range names {
		if !in.avail[n] {
			return false
		}
	}
	return true
}

func (in inputs) debt() float64 { return in.longTermDebt + in.shortTermDebt + in.currentDebt }

func (in inputs) workingCapital() float64 { return in.receivable - in.payables + in.inventory }

type definition struct {
	name    string
	unit    unit
	needs   []string
	compute func(in inputs) (float64, bool)
	red     func(v float64) bool
	redNote string
	okNote  string
}

var debtInputs = []string{"longTermDebt", "shortTermDebt", "currentDebt"}

func safeDiv(num, den float64) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

func (e *Engine) definitions() []definition {
	isc := func(in inputs) (float64, bool) { return safeDiv(in.interest, in.grossProfit) }
	if e.isc == ISCStandard {
		isc = func(in inputs) (float64, bool) { return safeDiv(in.grossProfit, in.interest) }
	}

	return []definition{
		{
			name:  ROCE,
			unit:  percent,
			needs: []string{"grossProfit", "receivable", "payables", "inventory"},
			compute: func(in inputs) (float64, bool) {
				v, ok := safeDiv(in.grossProfit, in.workingCapital())
				return v * 100, ok
			},
			red:     func(v float64) bool { return v < 30 },
			redNote: "Returns on working capital are below the 30% threshold.",
			okNote:  "Working capital is earning at least 30%.",
		},
		{
			name:    WorkingCapital,
			unit:    amount,
			needs:   []string{"receivable", "payables", "inventory"},
			compute: func(in inputs) (float64, bool) { return in.workingCapital(), true },
			red:     func(v float64) bool { return v < 0 },
			redNote: "Payables exceed receivables and inventory combined.",
			okNote:  "Receivables and inventory cover payables.",
		},
		{
			name:  CashConversionCycle,
			unit:  days,
			needs: []string{"turnover", "grossProfit", "receivable", "payables", "inventory"},
			compute: func(in inputs) (float64, bool) {
				invDays, ok1 := safeDiv(in.inventory*365, in.turnover)
				dso, ok2 := safeDiv(in.receivable*365, in.turnover)
				dpo, ok3 := safeDiv(in.payables*365, in.turnover-in.grossProfit)
				return invDays + dso - dpo, ok1 && ok2 && ok3
			},
			red:     func(v float64) bool { return v > 120 },
			redNote: "Cash is tied up in operations for more than 120 days.",
			okNote:  "Operating cycle converts to cash within 120 days.",
		},
		{
			name:    QuickRatio,
			unit:    times,
			needs:   []string{"currentAssets", "currentLiabilities"},
			compute: func(in inputs) (float64, bool) { return safeDiv(in.currentAssets, in.currentLiabilities) },
			red:     func(v float64) bool { return v <= 0.8 },
			redNote: "Current assets cover 0.8x or less of current liabilities.",
			okNote:  "Current assets comfortably cover current liabilities.",
		},
		{
			name:    InterestCoverage,
			unit:    times,
			needs:   []string{"interest", "grossProfit"},
			compute: isc,
			red:     func(v float64) bool { return v < 1.0 },
			redNote: "Interest service coverage is below 1.0x.",
			okNote:  "Interest service coverage is at or above 1.0x.",
		},
		{
			name:  Leverage,
			unit:  times,
			needs: append([]string{"turnover"}, debtInputs...),
			compute: func(in inputs) (float64, bool) {
				return safeDiv(in.debt(), in.turnover)
			},
			red:     func(v float64) bool { return v >= 0.30 },
			redNote: "Debt is 30% of turnover or more.",
			okNote:  "Debt stays under 30% of turnover.",
		},
		{
			name:    DSO,
			unit:    days,
			needs:   []string{"receivable", "turnover"},
			compute: func(in inputs) (float64, bool) { return safeDiv(in.receivable*365, in.turnover) },
			red:     func(v float64) bool { return v > 90 },
			redNote: "Customers take longer than 90 days to pay.",
			okNote:  "Receivables are collected within 90 days.",
		},
		{
			name:    DPO,
			unit:    days,
			needs:   []string{"payables", "turnover", "grossProfit"},
			compute: func(in inputs) (float64, bool) { return safeDiv(in.payables*365, in.turnover-in.grossProfit) },
			red:     func(v float64) bool { return v > 90 },
			redNote: "Suppliers are paid after more than 90 days.",
			okNote:  "Suppliers are paid within 90 days.",
		},
		{
			name:    InventoryDays,
			unit:    days,
			needs:   []string{"inventory", "turnover"},
			compute: func(in inputs) (float64, bool) { return safeDiv(in.inventory*365, in.turnover) },
			red:     func(v float64) bool { return v > 75 },
			redNote: "Inventory is held for more than 75 days.",
			okNote:  "Inventory turns within 75 days.",
		},
		{
			name:  GrossMargin,
			unit:  percent,
			needs: []string{"grossProfit", "turnover"},
			compute: func(in inputs) (float64, bool) {
				v, ok := safeDiv(in.grossProfit, in.turnover)
				return v * 100, ok
			},
			red:    func(float64) bool { return false },
			okNote: "Reported for reference.",
		},
		{
			name:  NetMargin,
			unit:  percent,
			needs: []string{"netProfit", "turnover"},
			compute: func(in inputs) (float64, bool) {
				v, ok := safeDiv(in.netProfit, in.turnover)
				return v * 100, ok
			},
			red:     func(v float64) bool { return v < 0 },
			redNote: "The business made a net loss.",
			okNote:  "The business is profitable at the net level.",
		},
		{
			name:  DebtToEquity,
			unit:  times,
			needs: append([]string{"equity"}, debtInputs...),
			compute: func(in inputs) (float64, bool) {
				return safeDiv(in.debt(), in.equity)
			},
			red:     func(v float64) bool { return v >= 3.0 },
			redNote: "Debt is three times equity or more.",
			okNote:  "Debt stays below three times equity.",
		},
	}
}

type Engine struct {
	isc ISCFormula
}

func New(isc ISCFormula) *Engine {
	if isc != ISCStandard {
		isc = ISCDocumented
	}
	return &Engine{isc: isc}
}

// Evaluate computes one fiscal year's report. Either record may be nil;
// ratios that need the missing side are reported unavailable.
func (e *Engine) Evaluate(pnl *models.ProfitAndLossRecord, bs *models.BalanceSheetRecord) FiscalYearReport {
	in := collect(pnl, bs)
	report := FiscalYearReport{PointsOfConcern: []Item{}}
	switch {
	case pnl != nil:
		report.FiscalYearEnd = pnl.FiscalYearEnd
	case bs != nil:
		report.FiscalYearEnd = bs.FiscalYearEnd
	}
	report.Year = report.FiscalYearEnd.FiscalYearLabel()

	for _, def := range e.definitions() {
		if !in.has(def.needs...) {
			report.Unavailable = append(report.Unavailable, def.name)
			continue
		}
		raw, ok := def.compute(in)
		if !ok {
			report.Unavailable = append(report.Unavailable, def.name)
			continue
		}
		v := utils.Round2(raw)
		res := Result{Metric: def.name, Value: v, Flag: Green}
		note := def.okNote
		if def.red(v) {
			res.Flag, note = Red, def.redNote
		}
		res.Item = Item{Metric: def.name, Value: format(v, def.unit), Note: note}
		report.Results = append(report.Results, res)

		if res.Flag == Red {
			report.PointsOfConcern = append(report.PointsOfConcern, res.Item)
		} else {
			report.StrongPoints = append(report.StrongPoints, res.Item)
		}
	}
	return report
}

// EvaluateBatch pairs records by fiscal year end and evaluates each year,
// newest first.
func (e *Engine) EvaluateBatch(pnls []*models.ProfitAndLossRecord, bss []*models.BalanceSheetRecord) []FiscalYearReport {
	type pair struct {
		end models.Date
		pnl *models.ProfitAndLossRecord
		bs  *models.BalanceSheetRecord
	}
	years := make(map[string]*pair)
	get := func(d models.Date) *pair {
		p, ok := years[d.String()]
		if !ok {
			p = &pair{end: d}
			years[d.String()] = p
		}
		return p
	}
	for _, r := range pnls {
		if r != nil {
			get(r.FiscalYearEnd).pnl = r
		}
	}
	for _, r := range bss {
		if r != nil {
			get(r.FiscalYearEnd).bs = r
		}
	}

	pairs := make([]*pair, 0, len(years))
	for _, p := range years {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].end.After(pairs[j].end.Time) })

	reports := make([]FiscalYearReport, 0, len(pairs))
	for _, p := range pairs {
		reports = append(reports, e.Evaluate(p.pnl, p.bs))
	}
	return reports
}

func collect(pnl *models.ProfitAndLossRecord, bs *models.BalanceSheetRecord) inputs {
	in := inputs{avail: make(map[string]bool)}
	mark := func(q models.Quality, name, path string) {
		in.avail[name] = !q.Unavailable(path)
	}
	if pnl != nil {
		c := pnl.CamSheet
		in.turnover, in.grossProfit, in.interest, in.netProfit = c.Turnover, c.GrossProfit, c.InterestExpenses, c.NetProfit
		mark(pnl.Quality, "turnover", "camSheetObject.turnover")
		mark(pnl.Quality, "grossProfit", "camSheetObject.grossProfit")
		mark(pnl.Quality, "interest", "camSheetObject.interestExpenses")
		mark(pnl.Quality, "netProfit", "camSheetObject.netProfit")
	}
	if bs != nil {
		c := bs.CamSheet
		in.receivable, in.payables, in.inventory = c.Receivable, c.Payables, c.Inventory
		in.currentAssets, in.currentLiabilities = c.CurrentAssets, c.CurrentLiabilities
		in.longTermDebt, in.shortTermDebt, in.currentDebt, in.equity = c.LongTermDebt, c.ShortTermDebt, c.CurrentDebt, c.Equity
		for name, key := range map[string]string{
			"receivable":         "receivable",
			"payables":           "payables",
			"inventory":          "inventory",
			"currentAssets":      "currentAssets",
			"currentLiabilities": "currentLiabilities",
			"longTermDebt":       "longTermDebt",
			"shortTermDebt":      "shortTermDebt",
			"currentDebt":        "currentDebt",
			"equity":             "equity",
		} {
			mark(bs.Quality, name, "camSheetObject."+key)
		}
	}
	return in
}

func format(v float64, u unit) string {
	switch u {
	case percent:
		return fmt.Sprintf("%.2f%%", v)
	case days:
		return fmt.Sprintf("%.2f days", v)
	case times:
		return fmt.Sprintf("%.2fx", v)
	}
	if v < 0 {
		return "-₹" + humanize.CommafWithDigits(-v, 2)
	}
	return "₹" + humanize.CommafWithDigits(v, 2)
}
