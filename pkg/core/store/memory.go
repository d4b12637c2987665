package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/models"
)

type memRow struct {
	key     models.RecordKey
	data    []byte
	created time.Time
	updated time.Time
}

// MemoryStore keeps records and tracker documents in process memory. Rows
// are held as JSON so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memRow
	tracker map[string]map[string]json.RawMessage
	now     func() time.Time
}

var (
	_ FinancialStore = (*MemoryStore)(nil)
	_ TrackerStore   = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memRow),
		tracker: make(map[string]map[string]json.RawMessage),
		now:     time.Now,
	}
}

func (m *MemoryStore) Upsert(ctx context.Context, rec models.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if _, _, err := tableFor(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return apperr.Persistence(err, "marshal %s", rec.Key())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	id := rec.Key().String()
	row, exists := m.records[id]
	if !exists {
		row.created = now
	}
	row.key, row.data, row.updated = rec.Key(), data, now
	m.records[id] = row
	return nil
}

func (m *MemoryStore) UpsertBalanceSheet(ctx context.Context, rec *models.BalanceSheetRecord) error {
	return m.Upsert(ctx, rec)
}

func (m *MemoryStore) UpsertProfitAndLoss(ctx context.Context, rec *models.ProfitAndLossRecord) error {
	return m.Upsert(ctx, rec)
}

// Len reports the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryStore) LoadBalanceSheets(ctx context.Context, companyGst string) ([]*models.BalanceSheetRecord, error) {
	var out []*models.BalanceSheetRecord
	for _, row := range m.rows(companyGst, models.BalanceSheet) {
		rec := &models.BalanceSheetRecord{}
		if err := json.Unmarshal(row.data, rec); err != nil {
			return nil, apperr.Persistence(err, "decode balance sheet")
		}
		rec.CreatedAt, rec.UpdatedAt = row.created, row.updated
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemoryStore) LoadProfitAndLoss(ctx context.Context, companyGst string) ([]*models.ProfitAndLossRecord, error) {
	var out []*models.ProfitAndLossRecord
	for _, row := range m.rows(companyGst, models.ProfitAndLoss) {
		rec := &models.ProfitAndLossRecord{}
		if err := json.Unmarshal(row.data, rec); err != nil {
			return nil, apperr.Persistence(err, "decode profit and loss")
		}
		rec.CreatedAt, rec.UpdatedAt = row.created, row.updated
		out = append(out, rec)
	}
	return out, nil
}

// rows returns a company's rows of one kind, newest fiscal year first.
func (m *MemoryStore) rows(companyGst string, kind models.DocumentKind) []memRow {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []memRow
	for _, row := range m.records {
		if row.key.CompanyIdentifier == companyGst && row.key.Kind == kind {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key.FiscalYearEnd.After(out[j].key.FiscalYearEnd.Time) })
	return out
}

// SeedApplication registers a tracker entry, as the loan-origination
// system would before any task references it.
func (m *MemoryStore) SeedApplication(applicationID string, fields map[string]interface{}) error {
	m.mu.Lock()
	m.tracker[applicationID] = make(map[string]json.RawMessage)
	m.mu.Unlock()
	if len(fields) == 0 {
		return nil
	}
	return m.MergeFields(context.Background(), applicationID, fields)
}

func (m *MemoryStore) MergeFields(ctx context.Context, applicationID string, fields map[string]interface{}) error {
	encoded := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return apperr.Persistence(err, "marshal tracker field %s", k)
		}
		encoded[k] = b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.tracker[applicationID]
	if !ok {
		return apperr.NotFound("application %s not in tracker", applicationID)
	}
	for k, v := range encoded {
		doc[k] = v
	}
	return nil
}

func (m *MemoryStore) AttachSummary(ctx context.Context, applicationID, summary string) error {
	return m.MergeFields(ctx, applicationID, map[string]interface{}{SummaryField: summary})
}

// Application returns a copy of a tracker document.
func (m *MemoryStore) Application(applicationID string) (map[string]interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.tracker[applicationID]
	if !ok {
		return nil, false
	}
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		var val interface{}
		_ = json.Unmarshal(v, &val)
		out[k] = val
	}
	return out, true
}
