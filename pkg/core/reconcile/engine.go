// Package reconcile turns a raw extracted statement object into a
// canonical record. It is pure: no I/O, no shared state.
package reconcile

import (
	"fmt"
	"math"
	"strings"

	"financial_underwriting/pkg/core/utils"
	"financial_underwriting/pkg/models"

	"github.com/rotisserie/eris"
)

const (
	// Tolerance is the relative discrepancy under which a computed
	// subtotal replaces the reported one.
	Tolerance = 0.005
	// MinConfidence is the OCR confidence below which a reading is
	// flagged low-confidence.
	MinConfidence = 0.85
	// SummaryLimit caps the per-statement summary, in runes.
	SummaryLimit = 500
)

type source int

const (
	srcNone source = iota
	srcRow
	srcLineItem
	srcDash
	srcBlank
	srcNote
	srcDerived
	srcBackfill
)

type field struct {
	value         float64
	src           source
	missing       bool
	lowConfidence bool
	// reassigned is set when a cross-category note moved value into or
	// out of this field; enclosing totals are then recomputed.
	reassigned bool
}

type pendingNote struct {
	from  string
	label string
	note  *note
}

type Engine struct {
	policy BackfillPolicy
}

type Option func(*Engine)

func WithBackfillPolicy(p BackfillPolicy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{policy: NeverInfer{}}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Reconcile dispatches on kind. The returned record has no company
// identifier; callers set it from the task.
func (e *Engine) Reconcile(raw map[string]interface{}, kind models.DocumentKind) (models.Record, error) {
	switch kind {
	case models.BalanceSheet:
		return e.BalanceSheet(raw), nil
	case models.ProfitAndLoss:
		return e.ProfitAndLoss(raw), nil
	}
	return nil, eris.Errorf("reconcile: unsupported document kind %q", kind)
}

func (e *Engine) BalanceSheet(raw map[string]interface{}) *models.BalanceSheetRecord {
	rec := &models.BalanceSheetRecord{}
	s := e.run(balanceSheetSchema, raw)
	s.apply(balanceSheetFields(&rec.BalanceSheet))
	s.balanceSheetCam(raw, &rec.CamSheet)

	rec.CompanyName = stringField(raw, "companyName")
	rec.FiscalYearEnd = s.fiscalYearEnd(raw)
	rec.Summary = utils.ClampRunes(stringField(raw, "summary"), SummaryLimit)
	rec.Quality = s.finish()
	return rec
}

func (e *Engine) ProfitAndLoss(raw map[string]interface{}) *models.ProfitAndLossRecord {
	rec := &models.ProfitAndLossRecord{}
	s := e.run(profitAndLossSchema, raw)
	s.deriveEbitda()
	s.apply(profitAndLossFields(&rec.ProfitAndLoss))
	rec.Metrics = s.pnlMetrics()
	s.profitAndLossCam(rec)

	rec.CompanyName = stringField(raw, "companyName")
	rec.FiscalYearEnd = s.fiscalYearEnd(raw)
	rec.Summary = utils.ClampRunes(stringField(raw, "summary"), SummaryLimit)
	rec.Quality = s.finish()
	return rec
}

type sheet struct {
	schema  *Schema
	policy  BackfillPolicy
	fields  map[string]*field
	notes   []pendingNote
	quality models.Quality
}

func (e *Engine) run(schema *Schema, raw map[string]interface{}) *sheet {
	s := &sheet{schema: schema, policy: e.policy, fields: make(map[string]*field)}
	for _, path := range schema.Fields() {
		v, _ := lookup(raw, path)
		s.fields[path] = s.resolve(path, parseCell(v), srcRow)
	}
	s.lineItems(raw)
	s.applyNotes()
	s.siblings()
	s.crossValidate()
	return s
}

// resolve applies the dash, blank and confidence rules to one cell.
func (s *sheet) resolve(path string, c cell, src source) *field {
	f := &field{}
	switch c.kind {
	case cellDash:
		f.src = srcDash
	case cellBlank:
		label := c.label
		if label == "" {
			label = path
		}
		if _, known := s.schema.Resolve(label); known {
			f.src = srcBlank
		} else {
			f.missing = true
		}
	case cellNumber:
		f.value, f.src = c.value, src
		if best, ok := pickReading(c); ok {
			f.value = best.value
			f.lowConfidence = best.confidence < MinConfidence
		}
	case cellInvalid:
		f.missing = true
		s.issue("%s: unreadable value %q", path, c.text)
	default:
		f.missing = true
	}
	if c.note != nil {
		s.notes = append(s.notes, pendingNote{from: path, label: c.label, note: c.note})
	}
	return f
}

// pickReading returns the highest-confidence reading when the cell carries
// any confidence information. Ties keep the primary reading.
func pickReading(c cell) (reading, bool) {
	if c.confidence == 0 && len(c.alternatives) == 0 {
		return reading{}, false
	}
	best := reading{value: c.value, confidence: c.confidence}
	for _, alt := range c.alternatives {
		if alt.confidence > best.confidence {
			best = alt
		}
	}
	if best.confidence == 0 {
		return reading{}, false
	}
	return best, true
}

// lineItems maps free-form {label, value, note} rows onto schema fields.
// A line item only fills a field the structured rows left missing.
func (s *sheet) lineItems(raw map[string]interface{}) {
	items, _ := raw["lineItems"].([]interface{})
	for i, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			s.issue("lineItems[%d]: not an object", i)
			continue
		}
		c := parseObject(m)
		path, known := s.schema.Resolve(c.label)
		if !known {
			if c.note != nil {
				s.notes = append(s.notes, pendingNote{label: c.label, note: c.note})
			} else {
				s.issue("line item %q not recognised", c.label)
			}
			continue
		}
		if f := s.fields[path]; !f.missing {
			s.issue("line item %q duplicates %s", c.label, path)
			continue
		}
		s.fields[path] = s.resolve(path, c, srcLineItem)
	}
}

// applyNotes resolves note cross-references. Same-category notes (their
// total or breakdown replaces the row) run before reassignments so an
// additive reassignment is not overwritten.
func (s *sheet) applyNotes() {
	type move struct {
		pendingNote
		target string
	}
	var moves []move
	for _, p := range s.notes {
		target := p.from
		if p.note.subject != "" && normalizeLabel(p.note.subject) != normalizeLabel(p.label) {
			path, ok := s.schema.Resolve(p.note.subject)
			if !ok {
				s.issue("note %s on %q: subject %q maps to no field", p.note.ref, p.label, p.note.subject)
				if p.from != "" {
					s.fields[p.from] = &field{src: srcNote}
				}
				continue
			}
			target = path
		}
		if target == "" {
			s.issue("note %s on %q: no field to attribute to", p.note.ref, p.label)
			continue
		}
		if target != p.from {
			moves = append(moves, move{p, target})
			continue
		}
		sum, ok := p.note.sum()
		if !ok {
			continue
		}
		s.fields[target] = &field{value: sum, src: srcNote}
	}

	for _, p := range moves {
		target := p.target
		sum, ok := p.note.sum()
		if !ok {
			s.issue("note %s on %q: no total or breakdown", p.note.ref, p.label)
			continue
		}
		if p.from != "" {
			s.fields[p.from] = &field{src: srcNote, reassigned: true}
		}
		t := s.fields[target]
		if p.note.additive && !t.missing {
			sum += t.value
		}
		s.fields[target] = &field{value: sum, src: srcNote, reassigned: true}
	}
}

// siblings zeroes the earlier of two adjacent non-total rows that carry
// the same non-zero row value.
func (s *sheet) siblings() {
	for _, sec := range s.schema.Sections {
		if !sec.Exclusive {
			continue
		}
		for i := 0; i+1 < len(sec.Rows); i++ {
			a, b := sec.Rows[i], sec.Rows[i+1]
			if s.schema.IsTotal(a) || s.schema.IsTotal(b) {
				continue
			}
			fa, fb := s.fields[a], s.fields[b]
			if fa.src != srcRow || fb.src != srcRow || fa.value == 0 || fa.value != fb.value {
				continue
			}
			fa.value = 0
			s.quality.AlignmentConflicts = append(s.quality.AlignmentConflicts, a)
		}
	}
}

// crossValidate recomputes every rollup bottom-up.
func (s *sheet) crossValidate() {
	for _, r := range s.schema.Rollups {
		var computed float64
		var absent []Term
		reassigned, low := false, false
		for _, t := range r.Terms {
			f := s.fields[t.Path]
			computed += t.Sign * f.value
			if f.missing {
				absent = append(absent, t)
			}
			reassigned = reassigned || f.reassigned
			low = low || f.lowConfidence
		}
		total := s.fields[r.Total]

		switch {
		case total.missing:
			// A total is only rebuilt from a complete set of terms.
			if len(absent) > 0 {
				if len(absent) < len(r.Terms) {
					s.issue("%s: absent and not computed, %d of %d terms missing", r.Total, len(absent), len(r.Terms))
				}
				continue
			}
			s.derive(r.Total, computed)
			s.fields[r.Total].lowConfidence = low
		case reassigned:
			if !nearlyEqual(total.value, computed) {
				s.derive(r.Total, computed)
			}
			s.fields[r.Total].reassigned = true
		default:
			diff := math.Abs(total.value - computed)
			if diff <= Tolerance*math.Abs(total.value) {
				if diff > 0 {
					s.derive(r.Total, computed)
				}
				continue
			}
			if len(absent) > 0 {
				fills := s.policy.Backfill(Gap{Total: r.Total, Reported: total.value, Computed: computed, Missing: absent})
				if len(fills) > 0 {
					for path, v := range fills {
						s.fields[path] = &field{value: v, src: srcBackfill}
						s.quality.Derived = append(s.quality.Derived, path)
						s.issue("%s: backfilled %s from %s (%s)", path, fmtAmount(v), r.Total, s.policy.Name())
					}
					continue
				}
			}
			s.issue("%s: reported %s differs from computed %s", r.Total, fmtAmount(total.value), fmtAmount(computed))
		}
	}
}

func (s *sheet) derive(path string, v float64) {
	s.fields[path] = &field{value: utils.Round2(v), src: srcDerived}
	s.quality.Derived = append(s.quality.Derived, path)
}

func (s *sheet) unavailable(path string) bool {
	f := s.fields[path]
	return f == nil || f.missing || f.lowConfidence
}

func (s *sheet) value(path string) float64 { return s.fields[path].value }

// apply writes field values into the record struct.
func (s *sheet) apply(targets map[string]*float64) {
	for path, ptr := range targets {
		if f, ok := s.fields[path]; ok {
			*ptr = f.value
		}
	}
}

func (s *sheet) fiscalYearEnd(raw map[string]interface{}) models.Date {
	v, ok := raw["fiscalYearEnd"]
	if !ok {
		s.issue("fiscalYearEnd: absent")
		return models.Date{}
	}
	d, ok := ParseFiscalYearEnd(v)
	if !ok {
		s.issue("fiscalYearEnd: unreadable %v", v)
	}
	return d
}

func (s *sheet) issue(format string, args ...interface{}) {
	s.quality.Issues = append(s.quality.Issues, fmt.Sprintf(format, args...))
}

// finish collects the missing and low-confidence paths in print order.
func (s *sheet) finish() models.Quality {
	q := s.quality
	var missing, low []string
	for _, path := range s.schema.Fields() {
		f := s.fields[path]
		if f.missing {
			missing = append(missing, path)
		}
		if f.lowConfidence {
			low = append(low, path)
		}
	}
	q.Missing = append(missing, q.Missing...)
	q.LowConfidence = append(low, q.LowConfidence...)
	return q
}

func lookup(raw map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = raw
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func stringField(raw map[string]interface{}, key string) string {
	s, _ := raw[key].(string)
	return strings.TrimSpace(s)
}

func nearlyEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func fmtAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
