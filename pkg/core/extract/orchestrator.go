// Package extract drives per-document extraction: fetch the source PDF,
// stage it for the model, ask for schema-shaped JSON and normalize the
// reply into a sequence of raw statement objects.
package extract

import (
	"context"
	"time"

	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/core/ingest"
	"financial_underwriting/pkg/core/llm"
	"financial_underwriting/pkg/core/stage"
	"financial_underwriting/pkg/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Fetcher downloads a source document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*ingest.Document, error)
}

// Stager makes document bytes addressable by the extraction capability.
type Stager interface {
	Stage(ctx context.Context, body []byte, mimeType string) (*stage.Artifact, error)
	Release(ctx context.Context, a *stage.Artifact) error
}

// PromptSource supplies the JSON-only instruction and per-kind schema.
type PromptSource interface {
	ExtractionPrompts(kind models.DocumentKind) (instruction string, schema string, err error)
}

// RawExtraction is the model's reply for one document, normalized to a
// sequence of objects (current year first).
type RawExtraction struct {
	Source   models.DocumentRef
	Objects  []map[string]interface{}
	Attempts int
}

type Options struct {
	// Attempts bounds tries for retryable failures; MalformedResponse is
	// retried at most once regardless.
	Attempts       int
	StagingTimeout time.Duration
	ReleaseTimeout time.Duration
	Limiter        *rate.Limiter
	Logger         *zap.Logger
}

type Orchestrator struct {
	fetcher    Fetcher
	stager     Stager
	capability llm.FileExtractor
	prompts    PromptSource
	opts       Options
	log        *zap.Logger
}

func NewOrchestrator(fetcher Fetcher, stager Stager, capability llm.FileExtractor, prompts PromptSource, opts Options) *Orchestrator {
	if opts.Attempts <= 0 {
		opts.Attempts = 2
	}
	if opts.StagingTimeout <= 0 {
		opts.StagingTimeout = 120 * time.Second
	}
	if opts.ReleaseTimeout <= 0 {
		opts.ReleaseTimeout = 30 * time.Second
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		fetcher:    fetcher,
		stager:     stager,
		capability: capability,
		prompts:    prompts,
		opts:       opts,
		log:        log,
	}
}

// Extract runs the fetch, stage, extract, clean sequence for one document.
func (o *Orchestrator) Extract(ctx context.Context, url string, kind models.DocumentKind) (*RawExtraction, error) {
	log := o.log.With(zap.String("url", url), zap.String("kind", kind.String()))

	instruction, schema, err := o.prompts.ExtractionPrompts(kind)
	if err != nil {
		return nil, eris.Wrap(err, "extract: prompts")
	}

	var (
		doc          *ingest.Document
		lastErr      error
		sawMalformed bool
	)
	for attempt := 1; attempt <= o.opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "extract: cancelled")
		}

		if doc == nil {
			doc, lastErr = o.fetcher.Fetch(ctx, url)
			if lastErr != nil {
				doc = nil
				log.Warn("extract: fetch failed", zap.Int("attempt", attempt), zap.Error(lastErr))
				if !apperr.IsRetryable(lastErr) {
					break
				}
				continue
			}
		}

		var objects []map[string]interface{}
		objects, lastErr = o.attempt(ctx, log, doc, instruction, schema)
		if lastErr == nil {
			log.Info("extract: document extracted", zap.Int("attempt", attempt), zap.Int("objects", len(objects)))
			return &RawExtraction{
				Source:   models.DocumentRef{URL: url, Kind: kind},
				Objects:  objects,
				Attempts: attempt,
			}, nil
		}

		log.Warn("extract: attempt failed", zap.Int("attempt", attempt), zap.Error(lastErr))
		if apperr.IsKind(lastErr, apperr.KindMalformedResponse) {
			if sawMalformed {
				break
			}
			sawMalformed = true
		}
		if !apperr.IsRetryable(lastErr) {
			break
		}
	}
	return nil, eris.Wrapf(lastErr, "extract %s %s", kind, url)
}

// attempt stages the document, calls the model and parses the reply. The
// staged artifact is released on every path.
func (o *Orchestrator) attempt(ctx context.Context, log *zap.Logger, doc *ingest.Document, instruction, schema string) ([]map[string]interface{}, error) {
	stageCtx, cancel := context.WithTimeout(ctx, o.opts.StagingTimeout)
	artifact, err := o.stager.Stage(stageCtx, doc.Body, "application/pdf")
	cancel()
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			err = apperr.Staging(err, "stage document")
		}
		return nil, err
	}
	defer func() {
		// The caller's context may already be cancelled; cleanup still runs.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.ReleaseTimeout)
		defer cancel()
		if err := o.stager.Release(releaseCtx, artifact); err != nil {
			log.Warn("extract: failed to release staged artifact", zap.String("artifact", artifact.Name), zap.Error(err))
		}
	}()

	if err := o.opts.Limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "extract: rate limiter")
	}

	raw, err := o.capability.ExtractFromFile(ctx, instruction, schema, llm.FileRef{URI: artifact.URI, MIMEType: artifact.MIMEType})
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			err = apperr.Capability(err, "extraction call")
		}
		return nil, err
	}
	return ParseResponse(raw)
}
