// Package dispatch routes an inbound task to the pipeline registered for
// its type.
package dispatch

import (
	"context"
	"sort"

	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/core/pipeline"
	"financial_underwriting/pkg/models"

	"go.uber.org/zap"
)

// Handler runs one task and returns its summary text.
type Handler interface {
	Handle(ctx context.Context, task models.FinancialTask) (string, error)
}

type HandlerFunc func(ctx context.Context, task models.FinancialTask) (string, error)

func (f HandlerFunc) Handle(ctx context.Context, task models.FinancialTask) (string, error) {
	return f(ctx, task)
}

// Runner is the shape shared by the GST and GSTR-3B pipelines.
type Runner interface {
	Run(ctx context.Context, task models.FinancialTask) (string, error)
}

// Financial adapts the financial pipeline to a Handler.
func Financial(p *pipeline.Financial) Handler {
	return HandlerFunc(func(ctx context.Context, task models.FinancialTask) (string, error) {
		res, err := p.Run(ctx, task)
		if err != nil {
			return "", err
		}
		return res.Text(), nil
	})
}

// Pipeline adapts a Runner to a Handler.
func Pipeline(r Runner) Handler {
	return HandlerFunc(r.Run)
}

type Dispatcher struct {
	handlers map[models.TaskType]Handler
	log      *zap.Logger
}

func New(log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{handlers: make(map[models.TaskType]Handler), log: log}
}

// Register binds a task type to its handler, replacing any earlier one.
func (d *Dispatcher) Register(taskType models.TaskType, h Handler) *Dispatcher {
	d.handlers[taskType.Normalize()] = h
	return d
}

// Types lists the registered task types.
func (d *Dispatcher) Types() []string {
	out := make([]string, 0, len(d.handlers))
	for t := range d.handlers {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the handler for taskType. Matching ignores case and
// surrounding whitespace.
func (d *Dispatcher) Dispatch(ctx context.Context, taskType string, payload models.FinancialTask) (string, error) {
	t := models.TaskType(taskType).Normalize()
	h, ok := d.handlers[t]
	if !ok {
		return "", apperr.UnknownTask(taskType)
	}
	payload.Type = t
	d.log.Debug("dispatch: routing task", zap.String("task_type", string(t)), zap.String("application_id", payload.ApplicationID))
	return h.Handle(ctx, payload)
}

// DispatchTask routes on the task's own type field.
func (d *Dispatcher) DispatchTask(ctx context.Context, task models.FinancialTask) (string, error) {
	return d.Dispatch(ctx, string(task.Type), task)
}

// DispatchText is Dispatch with failures rendered as "Error: <cause>".
func (d *Dispatcher) DispatchText(ctx context.Context, taskType string, payload models.FinancialTask) string {
	text, err := d.Dispatch(ctx, taskType, payload)
	if err != nil {
		return apperr.Text(err)
	}
	return text
}
