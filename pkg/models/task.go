package models

import "strings"

// TaskType names one of the pipelines a queued task can request.
type TaskType string

const (
	TaskFinancialSummary TaskType = "FINANCIAL_SUMMARY"
	TaskGSTR3BSummary    TaskType = "GSTR3B_SUMMARY"
	TaskGSTSummary       TaskType = "GST_SUMMARY"
)

// Normalize upper-cases and trims a raw task type.
func (t TaskType) Normalize() TaskType {
	return TaskType(strings.ToUpper(strings.TrimSpace(string(t))))
}

// FinancialTask is the inbound envelope consumed from the queue.
type FinancialTask struct {
	Type             TaskType       `json:"type"`
	ApplicationID    string         `json:"ApplicationId"`
	GstNumber        string         `json:"GstNumber"`
	PNLSheetURLs     []string       `json:"PNLSheetUrls"`
	BalanceSheetURLs []string       `json:"BalanceSheetUrls"`
	AuditReportURL   string         `json:"AuditReportUrl,omitempty"`
	GSTR3BReturns    []GSTR3BReturn `json:"Gstr3bReturns,omitempty"`
}

// Documents lists every (url, kind) pair of the task, P&L first.
func (t FinancialTask) Documents() []DocumentRef {
	refs := make([]DocumentRef, 0, len(t.PNLSheetURLs)+len(t.BalanceSheetURLs))
	for _, u := range t.PNLSheetURLs {
		if u = strings.TrimSpace(u); u != "" {
			refs = append(refs, DocumentRef{URL: u, Kind: ProfitAndLoss})
		}
	}
	for _, u := range t.BalanceSheetURLs {
		if u = strings.TrimSpace(u); u != "" {
			refs = append(refs, DocumentRef{URL: u, Kind: BalanceSheet})
		}
	}
	return refs
}

// DocumentRef is a single extraction request.
type DocumentRef struct {
	URL  string       `json:"url"`
	Kind DocumentKind `json:"kind"`
}

// GSTR3BReturn is one monthly GSTR-3B filing summary.
type GSTR3BReturn struct {
	// Period is the return period as MMYYYY.
	Period              string  `json:"period"`
	FilingDate          *Date   `json:"filingDate,omitempty"`
	DueDate             *Date   `json:"dueDate,omitempty"`
	OutwardTaxableValue float64 `json:"outwardTaxableValue"`
	TaxLiability        float64 `json:"taxLiability"`
	ITCAvailed          float64 `json:"itcAvailed"`
	CashPaid            float64 `json:"cashPaid"`
}
