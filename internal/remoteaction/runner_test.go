package remoteaction_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paydesk/internal/remoteaction"
)

type fakeCaller struct {
	mu    sync.Mutex
	calls []call
	resp  remoteaction.Response
}

type call struct {
	operation string
	args      map[string]string
}

func (f *fakeCaller) Call(_ context.Context, operation string, args map[string]string) remoteaction.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{operation: operation, args: args})
	return f.resp
}

func (f *fakeCaller) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type reactions struct {
	success atomic.Int32
	failure atomic.Int32
	mu      sync.Mutex
	last    remoteaction.Response
}

func (r *reactions) record(resp remoteaction.Response) {
	r.mu.Lock()
	r.last = resp
	r.mu.Unlock()
}

func (r *reactions) request(op, prompt string) remoteaction.Request {
	return remoteaction.Request{
		Operation: op,
		Args:      map[string]string{"settings": "Default", "action": "create"},
		Prompt:    prompt,
		OnSuccess: func(_ context.Context, resp remoteaction.Response) {
			r.record(resp)
			r.success.Add(1)
		},
		OnFailure: func(_ context.Context, resp remoteaction.Response) {
			r.record(resp)
			r.failure.Add(1)
		},
	}
}

func always(answer bool) remoteaction.Confirmer {
	return remoteaction.ConfirmFunc(func(context.Context, string) bool { return answer })
}

func TestRunDeclinedSkipsCallAndReactions(t *testing.T) {
	caller := &fakeCaller{resp: remoteaction.Response{Message: json.RawMessage(`"in_progress"`)}}
	runner := &remoteaction.Runner{Caller: caller, Confirmer: always(false)}
	var r reactions

	outcome, err := runner.Run(context.Background(), r.request("create_delete_webhooks", "Configure webhooks on your Stripe Dashboard"))
	require.NoError(t, err)
	require.Equal(t, remoteaction.Declined, outcome)
	require.Zero(t, caller.count())
	require.Zero(t, r.success.Load())
	require.Zero(t, r.failure.Load())
}

func TestRunConfirmedTruthyFiresSuccessOnce(t *testing.T) {
	caller := &fakeCaller{resp: remoteaction.Response{Message: json.RawMessage(`"in_progress"`)}}
	var prompted string
	confirmer := remoteaction.ConfirmFunc(func(_ context.Context, prompt string) bool {
		prompted = prompt
		return true
	})
	runner := &remoteaction.Runner{Caller: caller, Confirmer: confirmer}
	var r reactions

	outcome, err := runner.Run(context.Background(), r.request("create_delete_webhooks", "Configure webhooks on your Stripe Dashboard"))
	require.NoError(t, err)
	require.Equal(t, remoteaction.Succeeded, outcome)
	require.Equal(t, "Configure webhooks on your Stripe Dashboard", prompted)
	require.Equal(t, int32(1), r.success.Load())
	require.Zero(t, r.failure.Load())
	require.Equal(t, "in_progress", r.last.MessageString())
	require.Equal(t, 1, caller.count())
	require.Equal(t, map[string]string{"settings": "Default", "action": "create"}, caller.calls[0].args)
}

func TestRunFailureBranches(t *testing.T) {
	cases := map[string]remoteaction.Response{
		"absent":       {},
		"null":         {Message: json.RawMessage(`null`)},
		"empty string": {Message: json.RawMessage(`""`)},
		"false":        {Message: json.RawMessage(`false`)},
		"zero":         {Message: json.RawMessage(`0`)},
		"transport":    {Message: json.RawMessage(`"ignored"`), Err: errors.New("connection refused")},
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			caller := &fakeCaller{resp: resp}
			runner := &remoteaction.Runner{Caller: caller, Confirmer: always(true)}
			var r reactions

			outcome, err := runner.Run(context.Background(), r.request("create_delete_webhooks", "confirm?"))
			require.NoError(t, err)
			require.Equal(t, remoteaction.Failed, outcome)
			require.Zero(t, r.success.Load())
			require.Equal(t, int32(1), r.failure.Load())
		})
	}
}

func TestRunWithoutPromptNeverConfirms(t *testing.T) {
	caller := &fakeCaller{resp: remoteaction.Response{Message: json.RawMessage(`"https://pay.example/abc"`)}}
	confirmer := remoteaction.ConfirmFunc(func(context.Context, string) bool {
		t.Fatal("confirmer must not be consulted without a prompt")
		return false
	})
	runner := &remoteaction.Runner{Caller: caller, Confirmer: confirmer}
	var r reactions

	outcome, err := runner.Run(context.Background(), r.request("get_payment_url", ""))
	require.NoError(t, err)
	require.Equal(t, remoteaction.Succeeded, outcome)
	require.Equal(t, 1, caller.count())
}

func TestRunRejectsInvalidRequests(t *testing.T) {
	caller := &fakeCaller{}
	runner := &remoteaction.Runner{Caller: caller}
	var r reactions

	req := r.request("", "")
	_, err := runner.Run(context.Background(), req)
	require.ErrorIs(t, err, remoteaction.ErrInvalidRequest)

	req = r.request("get_payment_url", "")
	req.OnFailure = nil
	_, err = runner.Run(context.Background(), req)
	require.ErrorIs(t, err, remoteaction.ErrInvalidRequest)

	_, err = runner.Run(context.Background(), r.request("create_delete_webhooks", "needs a confirmer"))
	require.ErrorIs(t, err, remoteaction.ErrInvalidRequest)

	require.Zero(t, caller.count())
	require.Zero(t, r.success.Load()+r.failure.Load())
}

func TestGoDeliversSingleResult(t *testing.T) {
	release := make(chan struct{})
	caller := remoteaction.CallerFunc(func(context.Context, string, map[string]string) remoteaction.Response {
		<-release
		return remoteaction.Response{Message: json.RawMessage(`{"id":"we_123"}`)}
	})
	runner := &remoteaction.Runner{Caller: caller, Confirmer: always(true)}
	var r reactions

	results := runner.Go(context.Background(), r.request("create_delete_webhooks", "confirm?"))
	select {
	case <-results:
		t.Fatal("result delivered before the call completed")
	case <-time.After(10 * time.Millisecond):
	}
	close(release)

	res, ok := <-results
	require.True(t, ok)
	require.Equal(t, remoteaction.Succeeded, res.Outcome)
	require.NoError(t, res.Err)
	_, ok = <-results
	require.False(t, ok)
	require.Equal(t, int32(1), r.success.Load())
}

func TestConcurrentRunsAreIndependent(t *testing.T) {
	caller := &fakeCaller{resp: remoteaction.Response{Message: json.RawMessage(`"ok"`)}}
	runner := &remoteaction.Runner{Caller: caller, Confirmer: always(true)}
	var r reactions

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := runner.Run(context.Background(), r.request("create_delete_webhooks", "confirm?"))
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 20, caller.count())
	require.Equal(t, int32(20), r.success.Load())
	require.Zero(t, r.failure.Load())
}
