// Package summary asks the summarizer agent for one narrative per fiscal
// year and folds the narratives into the computed ratio reports. The
// result is the JSON text attached to the application tracker.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"financial_underwriting/pkg/core/agent"
	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/core/llm"
	"financial_underwriting/pkg/core/metrics"
	"financial_underwriting/pkg/core/prompt"
	"financial_underwriting/pkg/core/utils"
	"financial_underwriting/pkg/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Narrative length bounds, in runes.
const (
	MinNarrative = 500
	MaxNarrative = 1000
)

// Executor runs a prompt through the provider routed to an agent.
type Executor interface {
	ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string, options map[string]interface{}) (string, error)
}

type PromptSource interface {
	GetPrompt(id string) (*prompt.PromptTemplate, error)
}

// Input is everything the narrative is written from.
type Input struct {
	GstNumber     string
	Reports       []metrics.FiscalYearReport
	BalanceSheets []*models.BalanceSheetRecord
	ProfitAndLoss []*models.ProfitAndLossRecord
}

// Output is the document attached to the tracker.
type Output struct {
	FiscalYears []metrics.FiscalYearReport `json:"fiscalYears"`
}

type Writer struct {
	exec    Executor
	prompts PromptSource
	log     *zap.Logger
}

func NewWriter(exec Executor, prompts PromptSource, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{exec: exec, prompts: prompts, log: log}
}

type reply struct {
	FiscalYears []struct {
		Year           string `json:"year"`
		OverallSummary string `json:"overallSummary"`
	} `json:"fiscalYears"`
}

// Write produces the tracker summary text for a batch of fiscal years.
func (w *Writer) Write(ctx context.Context, in Input) (string, error) {
	out, err := w.Summarize(ctx, in)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", eris.Wrap(err, "summary: marshal output")
	}
	return string(b), nil
}

// Summarize returns the reports with their overallSummary filled in.
func (w *Writer) Summarize(ctx context.Context, in Input) (*Output, error) {
	if len(in.Reports) == 0 {
		return nil, apperr.Validation("no fiscal years to summarise for %s", in.GstNumber)
	}
	log := w.log.With(zap.String("gst", in.GstNumber))

	pt, err := w.prompts.GetPrompt(prompt.SummaryFinancial)
	if err != nil {
		return nil, eris.Wrap(err, "summary: prompt")
	}
	reports, err := json.MarshalIndent(reportViews(in.Reports), "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "summary: marshal reports")
	}
	userPrompt, err := prompt.RenderUserPrompt(pt, prompt.NewContext().
		Set("GstNumber", in.GstNumber).
		Set("Reports", string(reports)).
		Set("Quality", qualityNotes(in)))
	if err != nil {
		return nil, err
	}

	raw, err := w.exec.ExecutePrompt(ctx, agent.Summarizer, userPrompt, pt.SystemPrompt, map[string]interface{}{llm.OptJSON: true})
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			err = apperr.Capability(err, "summarizer call")
		}
		return nil, err
	}

	var parsed reply
	if _, err := utils.SmartParse(raw, &parsed); err != nil {
		return nil, apperr.MalformedResponse(raw, err)
	}
	narratives := make(map[string]string, len(parsed.FiscalYears))
	for _, fy := range parsed.FiscalYears {
		if s := strings.TrimSpace(fy.OverallSummary); s != "" {
			narratives[strings.TrimSpace(fy.Year)] = s
		}
	}

	out := &Output{FiscalYears: make([]metrics.FiscalYearReport, len(in.Reports))}
	for i, r := range in.Reports {
		text, ok := narratives[r.Year]
		if !ok {
			log.Warn("summary: no narrative for fiscal year, using generated text", zap.String("year", r.Year))
			text = fallback(r)
		}
		text = utils.ClampRunes(text, MaxNarrative)
		if n := utf8.RuneCountInString(text); n < MinNarrative {
			log.Warn("summary: narrative shorter than expected", zap.String("year", r.Year), zap.Int("runes", n))
		}
		r.OverallSummary = text
		out.FiscalYears[i] = r
	}
	return out, nil
}

type reportView struct {
	Year            string         `json:"year"`
	PointsOfConcern []metrics.Item `json:"pointsOfConcern"`
	StrongPoints    []metrics.Item `json:"strongPoints,omitempty"`
	NotComputed     []string       `json:"notComputed,omitempty"`
}

func reportViews(reports []metrics.FiscalYearReport) []reportView {
	views := make([]reportView, len(reports))
	for i, r := range reports {
		views[i] = reportView{
			Year:            r.Year,
			PointsOfConcern: r.PointsOfConcern,
			StrongPoints:    r.StrongPoints,
			NotComputed:     r.Unavailable,
		}
	}
	return views
}

// qualityNotes lists, per statement, the fields the reconciliation could
// not trust, plus the extractor's own short summary.
func qualityNotes(in Input) string {
	var lines []string
	add := func(label string, end models.Date, q models.Quality, note string) {
		var parts []string
		if len(q.Missing) > 0 {
			parts = append(parts, "missing "+strings.Join(q.Missing, ", "))
		}
		if len(q.LowConfidence) > 0 {
			parts = append(parts, "low confidence "+strings.Join(q.LowConfidence, ", "))
		}
		if len(q.Derived) > 0 {
			parts = append(parts, "derived "+strings.Join(q.Derived, ", "))
		}
		if len(q.AlignmentConflicts) > 0 {
			parts = append(parts, "alignment conflicts "+strings.Join(q.AlignmentConflicts, ", "))
		}
		parts = append(parts, q.Issues...)
		if note = strings.TrimSpace(note); note != "" {
			parts = append(parts, "extractor note: "+note)
		}
		if len(parts) > 0 {
			lines = append(lines, fmt.Sprintf("- %s %s: %s", end.FiscalYearLabel(), label, strings.Join(parts, "; ")))
		}
	}
	for _, r := range in.BalanceSheets {
		add("balance sheet", r.FiscalYearEnd, r.Quality, r.Summary)
	}
	for _, r := range in.ProfitAndLoss {
		add("profit and loss", r.FiscalYearEnd, r.Quality, r.Summary)
	}
	if len(lines) == 0 {
		return "None."
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// fallback is the deterministic narrative used when the model skipped a
// fiscal year.
func fallback(r metrics.FiscalYearReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "For fiscal year %s the ratio review found %d point(s) of concern and %d strong point(s).",
		r.Year, len(r.PointsOfConcern), len(r.StrongPoints))
	if len(r.PointsOfConcern) > 0 {
		b.WriteString(" Concerns: ")
		b.WriteString(describe(r.PointsOfConcern))
		b.WriteString(".")
	}
	if len(r.StrongPoints) > 0 {
		b.WriteString(" Strengths: ")
		b.WriteString(describe(r.StrongPoints))
		b.WriteString(".")
	}
	if len(r.Unavailable) > 0 {
		b.WriteString(" Not computed for lack of reliable inputs: ")
		b.WriteString(strings.Join(r.Unavailable, ", "))
		b.WriteString(".")
	}
	return b.String()
}

func describe(items []metrics.Item) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.Metric + " at " + it.Value
	}
	return strings.Join(parts, ", ")
}
