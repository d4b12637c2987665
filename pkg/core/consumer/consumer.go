// Package consumer feeds queued task envelopes to the dispatcher, one at a
// time, committing each message only after its task succeeds.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Dispatcher runs a decoded task.
type Dispatcher interface {
	DispatchTask(ctx context.Context, task models.FinancialTask) (string, error)
}

type Options struct {
	// Attempts bounds runs of one task, each from the start.
	Attempts int
	// Backoff is the pause between attempts and after a fetch error.
	Backoff time.Duration
	Logger  *zap.Logger
}

type Consumer struct {
	source     MessageSource
	dispatcher Dispatcher
	opts       Options
	log        *zap.Logger
}

func New(source MessageSource, dispatcher Dispatcher, opts Options) *Consumer {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{source: source, dispatcher: dispatcher, opts: opts, log: log}
}

// Run consumes until ctx is cancelled, then closes the source.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.source.Close(); err != nil {
			c.log.Warn("consumer: close failed", zap.Error(err))
		}
		c.log.Info("consumer: closed")
	}()

	for {
		msg, err := c.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("consumer: fetch failed", zap.Error(err))
			if !c.sleep(ctx) {
				return nil
			}
			continue
		}
		c.Handle(ctx, msg)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Handle processes one message and reports whether it was committed.
func (c *Consumer) Handle(ctx context.Context, msg Message) bool {
	log := c.log.With(zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))

	task, err := Decode(msg.Value)
	if err != nil {
		log.Warn("consumer: skipping message", zap.Error(err))
		return false
	}
	log = log.With(zap.String("task_type", string(task.Type)), zap.String("application_id", task.ApplicationID))
	log.Info("consumer: dispatching task")

	var lastErr error
	for attempt := 1; attempt <= c.opts.Attempts; attempt++ {
		text, err := c.dispatcher.DispatchTask(ctx, task)
		if err == nil {
			if err := c.source.Commit(ctx, msg); err != nil {
				log.Error("consumer: commit failed", zap.Error(err))
				return false
			}
			log.Info("consumer: task completed", zap.Int("attempt", attempt), zap.Int("chars", len(text)))
			return true
		}
		lastErr = err
		if ctx.Err() != nil {
			log.Warn("consumer: task interrupted by shutdown", zap.Error(err))
			return false
		}
		if permanent(err) {
			break
		}
		log.Warn("consumer: task attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("remaining", c.opts.Attempts-attempt),
			zap.Error(err),
		)
		if attempt < c.opts.Attempts && !c.sleep(ctx) {
			return false
		}
	}

	log.Error("consumer: task failed", zap.String("result", apperr.Text(lastErr)))
	return false
}

// permanent reports failures that another run of the same task cannot fix.
func permanent(err error) bool {
	return apperr.IsKind(err, apperr.KindUnknownTask) || apperr.IsKind(err, apperr.KindValidation)
}

func (c *Consumer) sleep(ctx context.Context) bool {
	if c.opts.Backoff == 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(c.opts.Backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ErrNoType marks an envelope without a task type.
var ErrNoType = errors.New("task type missing")

// Decode parses a task envelope. Empty bodies, malformed JSON and a
// missing type are rejected.
func Decode(value []byte) (models.FinancialTask, error) {
	var task models.FinancialTask
	if len(strings.TrimSpace(string(value))) == 0 {
		return task, eris.New("empty message")
	}
	if err := json.Unmarshal(value, &task); err != nil {
		return task, eris.Wrap(err, "malformed task JSON")
	}
	task.Type = task.Type.Normalize()
	if task.Type == "" {
		return task, ErrNoType
	}
	return task, nil
}
