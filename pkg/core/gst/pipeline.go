package gst

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

// TrackerField is the tracker field holding the GST company profile.
const TrackerField = "gstSummary"

type DetailsSource interface {
	Details(ctx context.Context, gstNumber string) (*Details, error)
}

type ProfileSource interface {
	Find(ctx context.Context, gstNumber string) (string, error)
}

type Executor interface {
	ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string, options map[string]interface{}) (string, error)
}

type PromptSource interface {
	GetPrompt(id string) (*prompt.PromptTemplate, error)
}

type Pipeline struct {
	details  DetailsSource
	profiles ProfileSource
	exec     Executor
	prompts  PromptSource
	tracker  store.TrackerStore
	log      *zap.Logger
}

// NewPipeline wires the GST summary flow. profiles may be nil.
func NewPipeline(details DetailsSource, profiles ProfileSource, exec Executor, prompts PromptSource, tracker store.TrackerStore, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		details:  details,
		profiles: profiles,
		exec:     exec,
		prompts:  prompts,
		tracker:  tracker,
		log:      log,
	}
}

// Run writes the company profile for the task's GSTIN and merges it into
// the tracker when the task names an application.
func (p *Pipeline) Run(ctx context.Context, task models.FinancialTask) (string, error) {
	gstNumber := strings.ToUpper(strings.TrimSpace(task.GstNumber))
	if gstNumber == "" {
		return "", apperr.Validation("task has no GstNumber")
	}
	log := p.log.With(zap.String("gst", gstNumber), zap.String("application_id", task.ApplicationID))

	details, err := p.details.Details(ctx, gstNumber)
	if err != nil {
		return "", eris.Wrap(err, "gst: details")
	}

	var profileURL string
	if p.profiles != nil {
		profileURL, err = p.profiles.Find(ctx, gstNumber)
		if err != nil {
			log.Warn("gst: profile lookup failed", zap.Error(err))
			profileURL = ""
		}
	}

	pt, err := p.prompts.GetPrompt(prompt.SummaryGST)
	if err != nil {
		return "", eris.Wrap(err, "gst: prompt")
	}
	userPrompt, err := prompt.RenderUserPrompt(pt, prompt.NewContext().
		Set("GstNumber", gstNumber).
		Set("TradeName", details.TradeName).
		Set("LegalName", details.LegalName).
		Set("Constitution", details.Constitution).
		Set("StateJurisdiction", details.StateJurisdiction).
		Set("Status", details.Status).
		Set("RegistrationDate", details.RegistrationDate).
		Set("NatureOfBusiness", details.NatureOfBusiness.String()).
		Set("Address", details.Address()).
		Set("IndiaMartURL", profileURL))
	if err != nil {
		return "", err
	}

	raw, err := p.exec.ExecutePrompt(ctx, agent.GSTSummary, userPrompt, pt.SystemPrompt, nil)
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			err = apperr.Capability(err, "GST summary call")
		}
		return "", err
	}
	text := utils.PlainText(raw)
	if text == "" {
		return "", apperr.Capability(nil, "empty GST summary for %s", gstNumber)
	}

	if task.ApplicationID == "" {
		log.Info("gst: no application id, summary not attached")
		return text, nil
	}
	if err := p.tracker.MergeFields(ctx, task.ApplicationID, map[string]interface{}{TrackerField: text}); err != nil {
		return "", eris.Wrap(err, "gst: attach summary")
	}
	log.Info("gst: company summary attached", zap.Bool("profile_found", profileURL != ""))
	return text, nil
}
