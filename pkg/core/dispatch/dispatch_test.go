package dispatch

import (
	"context"
	"errors"
	"testing"

	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockRunner struct {
	RunFunc func(ctx context.Context, task models.FinancialTask) (string, error)
	tasks   []models.FinancialTask
}

func (m *MockRunner) Run(ctx context.Context, task models.FinancialTask) (string, error) {
	m.tasks = append(m.tasks, task)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, task)
	}
	return "done:" + string(task.Type), nil
}

func newDispatcher() (*Dispatcher, map[models.TaskType]*MockRunner) {
	runners := map[models.TaskType]*MockRunner{
		models.TaskFinancialSummary: {},
		models.TaskGSTSummary:       {},
		models.TaskGSTR3BSummary:    {},
	}
	d := New(nil)
	for t, r := range runners {
		d.Register(t, Pipeline(r))
	}
	return d, runners
}

func TestDispatch_Routes(t *testing.T) {
	d, runners := newDispatcher()
	assert.Equal(t, []string{"FINANCIAL_SUMMARY", "GSTR3B_SUMMARY", "GST_SUMMARY"}, d.Types())

	tests := []struct {
		raw  string
		want models.TaskType
	}{
		{"FINANCIAL_SUMMARY", models.TaskFinancialSummary},
		{"gst_summary", models.TaskGSTSummary},
		{"  Gstr3b_Summary ", models.TaskGSTR3BSummary},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			text, err := d.Dispatch(context.Background(), tt.raw, models.FinancialTask{ApplicationID: "app1"})
			require.NoError(t, err)
			assert.Equal(t, "done:"+string(tt.want), text)
			r := runners[tt.want]
			require.NotEmpty(t, r.tasks)
			assert.Equal(t, "app1", r.tasks[len(r.tasks)-1].ApplicationID)
		})
	}
}

func TestDispatch_UnknownTask(t *testing.T) {
	d, runners := newDispatcher()
	_, err := d.Dispatch(context.Background(), "CIBIL_SUMMARY", models.FinancialTask{})
	assert.True(t, apperr.IsKind(err, apperr.KindUnknownTask))
	for _, r := range runners {
		assert.Empty(t, r.tasks)
	}

	_, err = d.DispatchTask(context.Background(), models.FinancialTask{})
	assert.True(t, apperr.IsKind(err, apperr.KindUnknownTask))
}

func TestDispatchText(t *testing.T) {
	d, runners := newDispatcher()
	runners[models.TaskGSTSummary].RunFunc = func(ctx context.Context, task models.FinancialTask) (string, error) {
		return "", apperr.Validation("task has no GstNumber")
	}

	assert.Equal(t, "Error: validation: task has no GstNumber", d.DispatchText(context.Background(), "GST_SUMMARY", models.FinancialTask{}))
	assert.Equal(t, `Error: unknown_task: unrecognized task type "NOPE"`, d.DispatchText(context.Background(), "NOPE", models.FinancialTask{}))
	assert.Equal(t, "done:GSTR3B_SUMMARY", d.DispatchText(context.Background(), "GSTR3B_SUMMARY", models.FinancialTask{}))
}

func TestHandlerFunc(t *testing.T) {
	boom := errors.New("boom")
	h := HandlerFunc(func(ctx context.Context, task models.FinancialTask) (string, error) { return "", boom })
	_, err := New(nil).Register("x", h).Dispatch(context.Background(), "X", models.FinancialTask{})
	assert.ErrorIs(t, err, boom)
}
