// Package pipeline runs the FINANCIAL_SUMMARY flow: extract every
// document of a task, reconcile and persist each statement, then compute
// the ratio reports over the batch and attach the narrative to the
// application tracker.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/core/extract"
	"financial_underwriting/pkg/core/metrics"
	"financial_underwriting/pkg/core/store"
	"financial_underwriting/pkg/core/summary"
	"financial_underwriting/pkg/models"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Extractor turns one document into raw statement objects.
type Extractor interface {
	Extract(ctx context.Context, url string, kind models.DocumentKind) (*extract.RawExtraction, error)
}

// Reconciler maps one raw statement object onto the canonical schema.
type Reconciler interface {
	Reconcile(raw map[string]interface{}, kind models.DocumentKind) (models.Record, error)
}

type Evaluator interface {
	EvaluateBatch(pnls []*models.ProfitAndLossRecord, bss []*models.BalanceSheetRecord) []metrics.FiscalYearReport
}

type Narrator interface {
	Write(ctx context.Context, in summary.Input) (string, error)
}

// Store is the persistence the pipeline writes to.
type Store interface {
	store.FinancialStore
	store.TrackerStore
}

// Outcome is the result for one statement, or for a whole document when
// it failed before any statement was read.
type Outcome struct {
	URL           string
	Kind          models.DocumentKind
	FiscalYearEnd models.Date
	Err           error
	// SupersededBy names the document whose statement was kept for the
	// same fiscal year and kind.
	SupersededBy string
}

func (o Outcome) OK() bool { return o.Err == nil }

func (o Outcome) String() string {
	year := o.FiscalYearEnd.String()
	if year == "" {
		year = "-"
	}
	if o.Err != nil {
		return fmt.Sprintf("%s %s %s: %v", o.Kind, year, o.URL, o.Err)
	}
	if o.SupersededBy != "" {
		return fmt.Sprintf("%s %s %s: superseded by %s", o.Kind, year, o.URL, o.SupersededBy)
	}
	return fmt.Sprintf("%s %s %s: ok", o.Kind, year, o.URL)
}

type BatchResult struct {
	RunID      string
	Outcomes   []Outcome
	Successes  int
	Failures   int
	Superseded int
	Reports    []metrics.FiscalYearReport
	Summary    string
	Duration   time.Duration
}

// Text is the caller-visible result of the task.
func (r *BatchResult) Text() string {
	if r == nil {
		return ""
	}
	return r.Summary
}

// FailureText lists the failed outcomes, one per line.
func (r *BatchResult) FailureText() string {
	var lines []string
	for _, o := range r.Outcomes {
		if !o.OK() {
			lines = append(lines, o.String())
		}
	}
	return strings.Join(lines, "\n")
}

type Options struct {
	// Concurrency bounds documents extracted at once.
	Concurrency int
	Logger      *zap.Logger
}

type Financial struct {
	extractor  Extractor
	reconciler Reconciler
	evaluator  Evaluator
	narrator   Narrator
	store      Store
	opts       Options
	log        *zap.Logger
}

func NewFinancial(extractor Extractor, reconciler Reconciler, evaluator Evaluator, narrator Narrator, st Store, opts Options) *Financial {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Financial{
		extractor:  extractor,
		reconciler: reconciler,
		evaluator:  evaluator,
		narrator:   narrator,
		store:      st,
		opts:       opts,
		log:        log,
	}
}

// Run processes every document of the task. Documents fail independently;
// the task fails only when no statement could be persisted, or when the
// narrative could not be produced or attached.
func (p *Financial) Run(ctx context.Context, task models.FinancialTask) (*BatchResult, error) {
	start := time.Now()
	gst := strings.TrimSpace(task.GstNumber)
	if gst == "" {
		return nil, apperr.Validation("task has no GstNumber")
	}
	if strings.TrimSpace(task.ApplicationID) == "" {
		return nil, apperr.Validation("task has no ApplicationId")
	}
	docs := task.Documents()
	if len(docs) == 0 {
		return nil, apperr.Validation("task has no document URLs")
	}

	result := &BatchResult{RunID: uuid.NewString()}
	log := p.log.With(
		zap.String("run_id", result.RunID),
		zap.String("application_id", task.ApplicationID),
		zap.String("gst", gst),
	)
	log.Info("pipeline: starting financial summary", zap.Int("documents", len(docs)))

	perDoc := make([][]*statement, len(docs))
	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			perDoc[i] = p.read(ctx, log, gst, i, doc)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return result, eris.Wrap(err, "pipeline: cancelled")
	}

	persisted := make(map[string]bool)
	winners := pickStatements(perDoc)
	var firstErr error
	for _, stmts := range perDoc {
		for _, st := range stmts {
			o := st.outcome
			if st.rec != nil {
				if w := winners[st.rec.Key().String()]; w != st {
					o.SupersededBy = w.outcome.URL
				} else if err := p.store.Upsert(ctx, st.rec); err != nil {
					log.Warn("pipeline: persist failed",
						zap.String("url", o.URL),
						zap.String("fiscal_year_end", o.FiscalYearEnd.String()),
						zap.Error(err),
					)
					o.Err = err
				} else {
					persisted[o.FiscalYearEnd.String()] = true
				}
			}

			result.Outcomes = append(result.Outcomes, o)
			switch {
			case o.Err != nil:
				result.Failures++
				if firstErr == nil {
					firstErr = o.Err
				}
			case o.SupersededBy != "":
				result.Superseded++
			default:
				result.Successes++
			}
		}
	}

	if result.Successes == 0 {
		return result, eris.Wrapf(firstErr, "pipeline: all %d documents failed", len(docs))
	}
	if result.Failures > 0 {
		log.Warn("pipeline: batch completed with failures",
			zap.Int("successes", result.Successes),
			zap.Int("failures", result.Failures),
		)
	}

	in, err := p.batchRecords(ctx, gst, persisted)
	if err != nil {
		return result, err
	}
	in.Reports = p.evaluator.EvaluateBatch(in.ProfitAndLoss, in.BalanceSheets)
	result.Reports = in.Reports

	text, err := p.narrator.Write(ctx, in)
	if err != nil {
		return result, eris.Wrap(err, "pipeline: narrative")
	}
	if err := p.store.AttachSummary(ctx, task.ApplicationID, text); err != nil {
		return result, eris.Wrap(err, "pipeline: attach summary")
	}
	result.Summary = text
	result.Duration = time.Since(start)

	log.Info("pipeline: financial summary attached",
		zap.Int("successes", result.Successes),
		zap.Int("failures", result.Failures),
		zap.Int("fiscal_years", len(result.Reports)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// statement is one reconciled statement awaiting persistence, or a failed
// one with its error set on the outcome.
type statement struct {
	doc     int
	index   int
	rec     models.Record
	outcome Outcome
}

// rank orders statements competing for one key: a document's own year
// (its first object) beats a comparative column of another document, then
// input order decides.
func (s *statement) rank() [3]int {
	column := 0
	if s.index > 0 {
		column = 1
	}
	return [3]int{column, s.doc, s.index}
}

func (s *statement) outranks(o *statement) bool {
	a, b := s.rank(), o.rank()
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// pickStatements chooses one statement per record key.
func pickStatements(perDoc [][]*statement) map[string]*statement {
	winners := make(map[string]*statement)
	for _, stmts := range perDoc {
		for _, st := range stmts {
			if st.rec == nil {
				continue
			}
			key := st.rec.Key().String()
			if cur, ok := winners[key]; !ok || st.outranks(cur) {
				winners[key] = st
			}
		}
	}
	return winners
}

// read extracts and reconciles one document.
func (p *Financial) read(ctx context.Context, log *zap.Logger, gst string, i int, doc models.DocumentRef) []*statement {
	log = log.With(zap.String("url", doc.URL), zap.String("kind", doc.Kind.String()))

	raw, err := p.extractor.Extract(ctx, doc.URL, doc.Kind)
	if err != nil {
		log.Warn("pipeline: document failed", zap.Error(err))
		return []*statement{{doc: i, outcome: Outcome{URL: doc.URL, Kind: doc.Kind, Err: err}}}
	}

	stmts := make([]*statement, 0, len(raw.Objects))
	for j, obj := range raw.Objects {
		st := &statement{doc: i, index: j, outcome: Outcome{URL: doc.URL, Kind: doc.Kind}}
		rec, err := p.reconciler.Reconcile(obj, doc.Kind)
		if err != nil {
			log.Warn("pipeline: statement rejected", zap.Int("index", j), zap.Error(err))
			st.outcome.Err = err
			stmts = append(stmts, st)
			continue
		}
		setCompany(rec, gst)
		st.rec = rec
		st.outcome.FiscalYearEnd = rec.Key().FiscalYearEnd
		stmts = append(stmts, st)
	}
	return stmts
}

// batchRecords loads the persisted records for the fiscal years this batch
// wrote.
func (p *Financial) batchRecords(ctx context.Context, gst string, years map[string]bool) (summary.Input, error) {
	in := summary.Input{GstNumber: gst}

	pnls, err := p.store.LoadProfitAndLoss(ctx, gst)
	if err != nil {
		return in, eris.Wrap(err, "pipeline: load profit and loss")
	}
	for _, r := range pnls {
		if years[r.FiscalYearEnd.String()] {
			in.ProfitAndLoss = append(in.ProfitAndLoss, r)
		}
	}

	bss, err := p.store.LoadBalanceSheets(ctx, gst)
	if err != nil {
		return in, eris.Wrap(err, "pipeline: load balance sheets")
	}
	for _, r := range bss {
		if years[r.FiscalYearEnd.String()] {
			in.BalanceSheets = append(in.BalanceSheets, r)
		}
	}
	return in, nil
}

func setCompany(rec models.Record, gst string) {
	switch r := rec.(type) {
	case *models.BalanceSheetRecord:
		r.CompanyIdentifier = gst
	case *models.ProfitAndLossRecord:
		r.CompanyIdentifier = gst
	}
}
