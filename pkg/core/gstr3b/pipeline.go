package gstr3b

import (
	"context"
	"strings"

	"financial_underwriting/pkg/core/agent"
	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/core/prompt"
	"financial_underwriting/pkg/core/store"
	"financial_underwriting/pkg/core/utils"
	"financial_underwriting/pkg/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TrackerField is the tracker field holding the GSTR-3B narrative.
const TrackerField = "gstr3bSummary"

type Executor interface {
	ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string, options map[string]interface{}) (string, error)
}

type PromptSource interface {
	GetPrompt(id string) (*prompt.PromptTemplate, error)
}

type Pipeline struct {
	exec    Executor
	prompts PromptSource
	tracker store.TrackerStore
	log     *zap.Logger
}

func NewPipeline(exec Executor, prompts PromptSource, tracker store.TrackerStore, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{exec: exec, prompts: prompts, tracker: tracker, log: log}
}

func (p *Pipeline) Run(ctx context.Context, task models.FinancialTask) (string, error) {
	if len(task.GSTR3BReturns) == 0 {
		return "", apperr.Validation("task has no GSTR-3B returns")
	}
	gstNumber := strings.ToUpper(strings.TrimSpace(task.GstNumber))
	log := p.log.With(zap.String("gst", gstNumber), zap.String("application_id", task.ApplicationID))

	agg := Aggregate(task.GSTR3BReturns)
	if len(agg.Months) == 0 {
		return "", apperr.Validation("no readable GSTR-3B return periods: %s", strings.Join(agg.Issues, "; "))
	}
	log.Info("gstr3b: returns aggregated",
		zap.Int("months", len(agg.Months)),
		zap.Int("late", len(agg.LateFilings)),
		zap.Int("missing", len(agg.MissingPeriods)),
	)

	pt, err := p.prompts.GetPrompt(prompt.SummaryGSTR3B)
	if err != nil {
		return "", eris.Wrap(err, "gstr3b: prompt")
	}
	userPrompt, err := prompt.RenderUserPrompt(pt, prompt.NewContext().
		Set("GstNumber", gstNumber).
		Set("Aggregates", agg.Text()))
	if err != nil {
		return "", err
	}

	raw, err := p.exec.ExecutePrompt(ctx, agent.GSTR3BSummary, userPrompt, pt.SystemPrompt, nil)
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			err = apperr.Capability(err, "GSTR-3B summary call")
		}
		return "", err
	}
	text := utils.PlainText(raw)
	if text == "" {
		return "", apperr.Capability(nil, "empty GSTR-3B summary")
	}

	if task.ApplicationID == "" {
		log.Info("gstr3b: no application id, summary not attached")
		return text, nil
	}
	if err := p.tracker.MergeFields(ctx, task.ApplicationID, map[string]interface{}{TrackerField: text}); err != nil {
		return "", eris.Wrap(err, "gstr3b: attach summary")
	}
	return text, nil
}
