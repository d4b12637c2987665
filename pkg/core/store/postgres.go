package store

import (
	"context"
	"encoding/json"
	"time"

	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const (
	balanceSheetTable  = "balance_sheet_data"
	profitAndLossTable = "pnl_sheet_data"
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS balance_sheet_data (
		company_gst     TEXT        NOT NULL,
		fiscal_year_end DATE        NOT NULL,
		company_name    TEXT        NOT NULL DEFAULT '',
		data            JSONB       NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (company_gst, fiscal_year_end)
	)`,
	`CREATE TABLE IF NOT EXISTS pnl_sheet_data (
		company_gst     TEXT        NOT NULL,
		fiscal_year_end DATE        NOT NULL,
		company_name    TEXT        NOT NULL DEFAULT '',
		data            JSONB       NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (company_gst, fiscal_year_end)
	)`,
	`CREATE TABLE IF NOT EXISTS los_application_tracker (
		identifier TEXT PRIMARY KEY,
		data       JSONB NOT NULL DEFAULT '{}'::jsonb
	)`,
}

// PostgresStore implements FinancialStore and TrackerStore on pgx.
type PostgresStore struct {
	db  DB
	now func() time.Time
}

var (
	_ FinancialStore = (*PostgresStore)(nil)
	_ TrackerStore   = (*PostgresStore)(nil)
)

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Migrate creates the record tables, and the tracker table when running
// against a database that does not have it yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := s.db.Exec(ctx, ddl); err != nil {
			return apperr.Persistence(err, "migrate")
		}
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec models.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	table, name, err := tableFor(rec)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return apperr.Persistence(err, "marshal %s", rec.Key())
	}

	key := rec.Key()
	query := `
		INSERT INTO ` + table + ` (company_gst, fiscal_year_end, company_name, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (company_gst, fiscal_year_end)
		DO UPDATE SET
			company_name = EXCLUDED.company_name,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.db.Exec(ctx, query, key.CompanyIdentifier, key.FiscalYearEnd.Time, name, data, s.now().UTC()); err != nil {
		return apperr.Persistence(err, "upsert %s", key)
	}
	return nil
}

func (s *PostgresStore) UpsertBalanceSheet(ctx context.Context, rec *models.BalanceSheetRecord) error {
	return s.Upsert(ctx, rec)
}

func (s *PostgresStore) UpsertProfitAndLoss(ctx context.Context, rec *models.ProfitAndLossRecord) error {
	return s.Upsert(ctx, rec)
}

func (s *PostgresStore) LoadBalanceSheets(ctx context.Context, companyGst string) ([]*models.BalanceSheetRecord, error) {
	var out []*models.BalanceSheetRecord
	err := s.load(ctx, balanceSheetTable, companyGst, func(data []byte, created, updated time.Time) error {
		rec := &models.BalanceSheetRecord{}
		if err := json.Unmarshal(data, rec); err != nil {
			return err
		}
		rec.CreatedAt, rec.UpdatedAt = created, updated
		out = append(out, rec)
		return nil
	})
	return out, err
}

func (s *PostgresStore) LoadProfitAndLoss(ctx context.Context, companyGst string) ([]*models.ProfitAndLossRecord, error) {
	var out []*models.ProfitAndLossRecord
	err := s.load(ctx, profitAndLossTable, companyGst, func(data []byte, created, updated time.Time) error {
		rec := &models.ProfitAndLossRecord{}
		if err := json.Unmarshal(data, rec); err != nil {
			return err
		}
		rec.CreatedAt, rec.UpdatedAt = created, updated
		out = append(out, rec)
		return nil
	})
	return out, err
}

// load scans a company's rows, newest fiscal year first.
func (s *PostgresStore) load(ctx context.Context, table, companyGst string, scan func(data []byte, created, updated time.Time) error) error {
	query := `SELECT data, created_at, updated_at FROM ` + table + `
		WHERE company_gst = $1
		ORDER BY fiscal_year_end DESC`

	rows, err := s.db.Query(ctx, query, companyGst)
	if err != nil {
		return apperr.Persistence(err, "query %s", table)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			data             []byte
			created, updated time.Time
		)
		if err := rows.Scan(&data, &created, &updated); err != nil {
			return apperr.Persistence(err, "scan %s row", table)
		}
		if err := scan(data, created, updated); err != nil {
			return apperr.Persistence(err, "decode %s row", table)
		}
	}
	if err := rows.Err(); err != nil {
		return apperr.Persistence(err, "read %s", table)
	}
	return nil
}

// MergeFields merges fields into the tracker's JSON document with jsonb
// concatenation, so keys it does not name survive.
func (s *PostgresStore) MergeFields(ctx context.Context, applicationID string, fields map[string]interface{}) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return apperr.Persistence(err, "marshal tracker fields")
	}

	query := `
		UPDATE los_application_tracker
		SET data = COALESCE(data, '{}'::jsonb) || $2::jsonb
		WHERE identifier = $1`

	tag, err := s.db.Exec(ctx, query, applicationID, patch)
	if err != nil {
		return apperr.Persistence(err, "update tracker %s", applicationID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("application %s not in tracker", applicationID)
	}
	return nil
}

func (s *PostgresStore) AttachSummary(ctx context.Context, applicationID, summary string) error {
	return s.MergeFields(ctx, applicationID, map[string]interface{}{SummaryField: summary})
}

func tableFor(rec models.Record) (table, companyName string, err error) {
	switch r := rec.(type) {
	case *models.BalanceSheetRecord:
		return balanceSheetTable, r.CompanyName, nil
	case *models.ProfitAndLossRecord:
		return profitAndLossTable, r.CompanyName, nil
	}
	return "", "", apperr.Validation("unsupported record type %T", rec)
}
