// Package store persists canonical financial records and merges generated
// narratives into the loan-application tracker.
package store

import (
	"context"

	"financial_underwriting/pkg/models"
)

// FinancialStore holds one record per (company, fiscal year end, kind).
// Writing the same key again overwrites in place.
type FinancialStore interface {
	Upsert(ctx context.Context, rec models.Record) error
	UpsertBalanceSheet(ctx context.Context, rec *models.BalanceSheetRecord) error
	UpsertProfitAndLoss(ctx context.Context, rec *models.ProfitAndLossRecord) error
	LoadBalanceSheets(ctx context.Context, companyGst string) ([]*models.BalanceSheetRecord, error)
	LoadProfitAndLoss(ctx context.Context, companyGst string) ([]*models.ProfitAndLossRecord, error)
}

// TrackerStore partially updates the externally owned application tracker.
// Fields not named in an update are left untouched.
type TrackerStore interface {
	MergeFields(ctx context.Context, applicationID string, fields map[string]interface{}) error
	AttachSummary(ctx context.Context, applicationID, summary string) error
}

// SummaryField is the tracker field holding the financial narrative.
const SummaryField = "summary"
