// Package gstr3b runs the GSTR3B_SUMMARY flow: aggregate a company's
// monthly GSTR-3B returns, check filing discipline, and write a compliance
// narrative onto the application tracker.
package gstr3b

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"financial_underwriting/pkg/core/utils"
	"financial_underwriting/pkg/models"

	"github.com/dustin/go-humanize"
)

// dueDay is the statutory GSTR-3B due day of the month following the
// return period, used when a return carries no due date.
const dueDay = 20

// Month is one return period after validation.
type Month struct {
	Period              string
	Start               time.Time
	FilingDate          *models.Date
	DueDate             models.Date
	OutwardTaxableValue float64
	TaxLiability        float64
	ITCAvailed          float64
	CashPaid            float64
}

// LateFiling is a return filed after its due date.
type LateFiling struct {
	Period   string
	DaysLate int
}

// FiscalYearTotal sums the returns of one April-March fiscal year.
type FiscalYearTotal struct {
	Year                string
	Months              int
	OutwardTaxableValue float64
	TaxLiability        float64
}

type Aggregates struct {
	Months              []Month
	FirstPeriod         string
	LastPeriod          string
	OutwardTaxableValue float64
	TaxLiability        float64
	ITCAvailed          float64
	CashPaid            float64
	// ITCShare is the percentage of tax paid through input tax credit.
	ITCShare       *float64
	ByFiscalYear   []FiscalYearTotal
	LateFilings    []LateFiling
	Unfiled        []string
	MissingPeriods []string
	Issues         []string
}

// ParsePeriod reads an MMYYYY return period.
func ParsePeriod(period string) (time.Time, bool) {
	period = strings.TrimSpace(period)
	if len(period) != 6 {
		return time.Time{}, false
	}
	month, err1 := strconv.Atoi(period[:2])
	year, err2 := strconv.Atoi(period[2:])
	if err1 != nil || err2 != nil || month < 1 || month > 12 || year < 2017 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
}

func formatPeriod(t time.Time) string { return t.Format("012006") }

// Aggregate validates, orders and sums the returns.
func Aggregate(returns []models.GSTR3BReturn) Aggregates {
	var agg Aggregates
	byPeriod := make(map[string]Month)
	for _, r := range returns {
		start, ok := ParsePeriod(r.Period)
		if !ok {
			agg.Issues = append(agg.Issues, fmt.Sprintf("unreadable return period %q skipped", r.Period))
			continue
		}
		key := formatPeriod(start)
		if _, dup := byPeriod[key]; dup {
			agg.Issues = append(agg.Issues, fmt.Sprintf("duplicate return for %s, last one kept", key))
		}
		m := Month{
			Period:              key,
			Start:               start,
			FilingDate:          r.FilingDate,
			OutwardTaxableValue: r.OutwardTaxableValue,
			TaxLiability:        r.TaxLiability,
			ITCAvailed:          r.ITCAvailed,
			CashPaid:            r.CashPaid,
		}
		if r.DueDate != nil && !r.DueDate.IsZero() {
			m.DueDate = *r.DueDate
		} else {
			next := start.AddDate(0, 1, 0)
			m.DueDate = models.NewDate(next.Year(), next.Month(), dueDay)
		}
		byPeriod[key] = m
	}

	for _, m := range byPeriod {
		agg.Months = append(agg.Months, m)
	}
	sort.Slice(agg.Months, func(i, j int) bool { return agg.Months[i].Start.Before(agg.Months[j].Start) })
	if len(agg.Months) == 0 {
		return agg
	}
	agg.FirstPeriod = agg.Months[0].Period
	agg.LastPeriod = agg.Months[len(agg.Months)-1].Period

	years := make(map[string]*FiscalYearTotal)
	var order []string
	for _, m := range agg.Months {
		agg.OutwardTaxableValue += m.OutwardTaxableValue
		agg.TaxLiability += m.TaxLiability
		agg.ITCAvailed += m.ITCAvailed
		agg.CashPaid += m.CashPaid

		label := fiscalYear(m.Start)
		fy, ok := years[label]
		if !ok {
			fy = &FiscalYearTotal{Year: label}
			years[label] = fy
			order = append(order, label)
		}
		fy.Months++
		fy.OutwardTaxableValue += m.OutwardTaxableValue
		fy.TaxLiability += m.TaxLiability

		switch {
		case m.FilingDate == nil || m.FilingDate.IsZero():
			agg.Unfiled = append(agg.Unfiled, m.Period)
		case m.FilingDate.After(m.DueDate.Time):
			days := int(m.FilingDate.Sub(m.DueDate.Time).Hours() / 24)
			agg.LateFilings = append(agg.LateFilings, LateFiling{Period: m.Period, DaysLate: days})
		}
	}
	for _, label := range order {
		agg.ByFiscalYear = append(agg.ByFiscalYear, *years[label])
	}

	for cur := agg.Months[0].Start; !cur.After(agg.Months[len(agg.Months)-1].Start); cur = cur.AddDate(0, 1, 0) {
		if _, ok := byPeriod[formatPeriod(cur)]; !ok {
			agg.MissingPeriods = append(agg.MissingPeriods, formatPeriod(cur))
		}
	}

	if paid := agg.ITCAvailed + agg.CashPaid; paid > 0 {
		agg.ITCShare = utils.Float(utils.Round2(agg.ITCAvailed / paid * 100))
	}
	return agg
}

// fiscalYear labels the April-March year a month falls in.
func fiscalYear(t time.Time) string {
	end := t.Year()
	if t.Month() >= time.April {
		end++
	}
	return models.NewDate(end, time.March, 31).FiscalYearLabel()
}

// Text renders the aggregates for the narrative prompt.
func (a Aggregates) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Return periods: %d (%s to %s)\n", len(a.Months), a.FirstPeriod, a.LastPeriod)
	fmt.Fprintf(&b, "Outward taxable value: %s\n", rupees(a.OutwardTaxableValue))
	fmt.Fprintf(&b, "Tax liability: %s\n", rupees(a.TaxLiability))
	fmt.Fprintf(&b, "Paid through ITC: %s\n", rupees(a.ITCAvailed))
	fmt.Fprintf(&b, "Paid in cash: %s\n", rupees(a.CashPaid))
	if a.ITCShare != nil {
		fmt.Fprintf(&b, "ITC share of tax paid: %.2f%%\n", *a.ITCShare)
	}
	for _, fy := range a.ByFiscalYear {
		fmt.Fprintf(&b, "FY %s: %d month(s), outward taxable value %s, tax liability %s\n",
			fy.Year, fy.Months, rupees(fy.OutwardTaxableValue), rupees(fy.TaxLiability))
	}

	if len(a.LateFilings) == 0 {
		b.WriteString("Late filings: none\n")
	} else {
		parts := make([]string, len(a.LateFilings))
		for i, l := range a.LateFilings {
			parts[i] = fmt.Sprintf("%s (%d days)", l.Period, l.DaysLate)
		}
		fmt.Fprintf(&b, "Late filings: %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintf(&b, "Not filed: %s\n", listOrNone(a.Unfiled))
	fmt.Fprintf(&b, "Missing periods: %s\n", listOrNone(a.MissingPeriods))
	if len(a.Issues) > 0 {
		fmt.Fprintf(&b, "Data issues: %s\n", strings.Join(a.Issues, "; "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func listOrNone(list []string) string {
	if len(list) == 0 {
		return "none"
	}
	return strings.Join(list, ", ")
}

func rupees(v float64) string {
	if v < 0 {
		return "-₹" + humanize.CommafWithDigits(-v, 2)
	}
	return "₹" + humanize.CommafWithDigits(v, 2)
}
