package consumer

import (
	"context"
	"errors"
	"testing"

	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockSource struct {
	Messages  []Message
	CommitErr error
	committed []int64
	closed    bool
	// cancel fires once the queue drains.
	cancel context.CancelFunc
}

func (m *MockSource) Fetch(ctx context.Context) (Message, error) {
	if len(m.Messages) == 0 {
		if m.cancel != nil {
			m.cancel()
		}
		<-ctx.Done()
		return Message{}, ctx.Err()
	}
	msg := m.Messages[0]
	m.Messages = m.Messages[1:]
	return msg, nil
}

func (m *MockSource) Commit(ctx context.Context, msg Message) error {
	if m.CommitErr != nil {
		return m.CommitErr
	}
	m.committed = append(m.committed, msg.Offset)
	return nil
}

func (m *MockSource) Close() error {
	m.closed = true
	return nil
}

type MockDispatcher struct {
	DispatchFunc func(ctx context.Context, task models.FinancialTask) (string, error)
	calls        []models.FinancialTask
}

func (m *MockDispatcher) DispatchTask(ctx context.Context, task models.FinancialTask) (string, error) {
	m.calls = append(m.calls, task)
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, task)
	}
	return "ok", nil
}

func msg(offset int64, body string) Message {
	return Message{Topic: "underwriting", Offset: offset, Value: []byte(body)}
}

func TestDecode(t *testing.T) {
	task, err := Decode([]byte(`{"type":" gst_summary ","ApplicationId":"app1","GstNumber":"24AAEFK8509N1ZZ"}`))
	require.NoError(t, err)
	assert.Equal(t, models.TaskGSTSummary, task.Type)
	assert.Equal(t, "app1", task.ApplicationID)

	_, err = Decode([]byte("  "))
	assert.Error(t, err)
	_, err = Decode([]byte("{not json"))
	assert.Error(t, err)
	_, err = Decode([]byte(`{"ApplicationId":"app1"}`))
	assert.ErrorIs(t, err, ErrNoType)
}

func TestHandle_CommitsOnSuccess(t *testing.T) {
	src := &MockSource{}
	disp := &MockDispatcher{}
	c := New(src, disp, Options{})

	assert.True(t, c.Handle(context.Background(), msg(7, `{"type":"GST_SUMMARY","GstNumber":"x"}`)))
	assert.Equal(t, []int64{7}, src.committed)
	require.Len(t, disp.calls, 1)
}

func TestHandle_SkipsBadMessages(t *testing.T) {
	src := &MockSource{}
	disp := &MockDispatcher{}
	c := New(src, disp, Options{})

	for _, body := range []string{"", "{", `{"ApplicationId":"a"}`} {
		assert.False(t, c.Handle(context.Background(), msg(1, body)), body)
	}
	assert.Empty(t, disp.calls)
	assert.Empty(t, src.committed)
}

func TestHandle_Retries(t *testing.T) {
	src := &MockSource{}
	attempts := 0
	disp := &MockDispatcher{DispatchFunc: func(ctx context.Context, task models.FinancialTask) (string, error) {
		attempts++
		if attempts < 3 {
			return "", apperr.Fetch(errors.New("reset"), "fetch %s", "https://x/a.pdf")
		}
		return "done", nil
	}}
	c := New(src, disp, Options{Attempts: 3})

	assert.True(t, c.Handle(context.Background(), msg(3, `{"type":"FINANCIAL_SUMMARY"}`)))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int64{3}, src.committed)
}

func TestHandle_GivesUpWithoutCommit(t *testing.T) {
	src := &MockSource{}
	disp := &MockDispatcher{DispatchFunc: func(ctx context.Context, task models.FinancialTask) (string, error) {
		return "", errors.New("boom")
	}}
	c := New(src, disp, Options{Attempts: 2})

	assert.False(t, c.Handle(context.Background(), msg(4, `{"type":"FINANCIAL_SUMMARY"}`)))
	assert.Len(t, disp.calls, 2)
	assert.Empty(t, src.committed)
}

func TestHandle_PermanentFailureNotRetried(t *testing.T) {
	src := &MockSource{}
	disp := &MockDispatcher{DispatchFunc: func(ctx context.Context, task models.FinancialTask) (string, error) {
		return "", apperr.UnknownTask(string(task.Type))
	}}
	c := New(src, disp, Options{Attempts: 3})

	assert.False(t, c.Handle(context.Background(), msg(5, `{"type":"CIBIL_SUMMARY"}`)))
	assert.Len(t, disp.calls, 1)
	assert.Empty(t, src.committed)
}

func TestHandle_CommitFailure(t *testing.T) {
	src := &MockSource{CommitErr: errors.New("rebalance")}
	c := New(src, &MockDispatcher{}, Options{})
	assert.False(t, c.Handle(context.Background(), msg(6, `{"type":"GST_SUMMARY"}`)))
}

func TestRun_DrainsAndCloses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &MockSource{
		Messages: []Message{
			msg(1, `{"type":"GST_SUMMARY"}`),
			msg(2, "garbage"),
			msg(3, `{"type":"GSTR3B_SUMMARY"}`),
		},
		cancel: cancel,
	}
	disp := &MockDispatcher{}

	require.NoError(t, New(src, disp, Options{}).Run(ctx))
	assert.Equal(t, []int64{1, 3}, src.committed)
	assert.Len(t, disp.calls, 2)
	assert.True(t, src.closed)
}
