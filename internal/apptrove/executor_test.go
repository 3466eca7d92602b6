package apptrove

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var testCredentials = []CredentialBundle{
	{Label: LabelReporting, Headers: map[string]string{"api-key": "R"}},
	{Label: LabelGeneral, Headers: map[string]string{"api-key": "K"}},
}

type countingRecorder struct {
	attempts    map[string]int
	exhaustions int
}

func (r *countingRecorder) ObserveAttempt(_, _, outcome string, _ time.Duration) {
	if r.attempts == nil {
		r.attempts = map[string]int{}
	}
	r.attempts[outcome]++
}

func (r *countingRecorder) ObserveExhaustion(string) { r.exhaustions++ }

func TestExecuteNoCredentialsMakesNoCalls(t *testing.T) {
	doer := &mockDoer{respond: func(*http.Request) (*http.Response, error) {
		return response(http.StatusOK, `{}`), nil
	}}
	recorder := &countingRecorder{}
	executor := NewExecutor(doer, zap.NewNop(), recorder)

	_, err := executor.Execute(context.Background(), Call{
		Operation: "test",
		Method:    http.MethodGet,
		Endpoints: []string{"http://vendor.test/e1", "http://vendor.test/e2"},
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Empty(t, exhausted.Attempts)
	assert.Empty(t, doer.calls)
	assert.Equal(t, 1, recorder.exhaustions)
}

func TestExecuteStopsAtFirstSuccess(t *testing.T) {
	// Пара 1 (e1, R) - 500, пара 2 (e1, K) - 200, пара 3 (e2, R) не должна вызываться
	doer := &mockDoer{respond: func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("api-key") == "K" {
			return response(http.StatusOK, `{"ok":true}`), nil
		}
		return response(http.StatusInternalServerError, `{"message":"boom"}`), nil
	}}
	recorder := &countingRecorder{}
	executor := NewExecutor(doer, zap.NewNop(), recorder)

	result, err := executor.Execute(context.Background(), Call{
		Operation:   "test",
		Method:      http.MethodGet,
		Endpoints:   []string{"http://vendor.test/e1", "http://vendor.test/e2"},
		Credentials: testCredentials,
	})

	require.NoError(t, err)
	assert.Equal(t, "http://vendor.test/e1", result.Endpoint)
	assert.Equal(t, LabelGeneral, result.CredentialLabel)
	assert.Equal(t, map[string]any{"ok": true}, result.Body)
	assert.Len(t, doer.calls, 2)
	assert.Equal(t, 0, doer.callsTo("http://vendor.test/e2"))
	assert.Equal(t, 1, recorder.attempts["success"])
	assert.Equal(t, 1, recorder.attempts["failure"])
	assert.Equal(t, 0, recorder.exhaustions)
}

func TestExecuteIteratesEndpointsOuterCredentialsInner(t *testing.T) {
	doer := &mockDoer{respond: func(*http.Request) (*http.Response, error) {
		return response(http.StatusUnauthorized, ``), nil
	}}
	executor := NewExecutor(doer, zap.NewNop(), nil)

	_, err := executor.Execute(context.Background(), Call{
		Operation:   "test",
		Method:      http.MethodGet,
		Endpoints:   []string{"http://vendor.test/e1", "http://vendor.test/e2"},
		Credentials: testCredentials,
	})
	require.Error(t, err)

	require.Len(t, doer.calls, 4)
	order := make([]string, 0, len(doer.calls))
	for _, c := range doer.calls {
		order = append(order, c.URL+"|"+c.Headers.Get("api-key"))
	}
	assert.Equal(t, []string{
		"http://vendor.test/e1|R",
		"http://vendor.test/e1|K",
		"http://vendor.test/e2|R",
		"http://vendor.test/e2|K",
	}, order)
}

func TestExecuteExhaustionKeepsLastMessage(t *testing.T) {
	calls := 0
	doer := &mockDoer{respond: func(*http.Request) (*http.Response, error) {
		calls++
		switch calls {
		case 1:
			return response(http.StatusForbidden, `{"message":"forbidden key"}`), nil
		case 2:
			return nil, errors.New("dial tcp: connection refused")
		case 3:
			return response(http.StatusBadRequest, `{"error":{"message":"bad template"}}`), nil
		default:
			return response(http.StatusBadGateway, `<html>bad gateway</html>`), nil
		}
	}}
	executor := NewExecutor(doer, zap.NewNop(), nil)

	_, err := executor.Execute(context.Background(), Call{
		Operation:   "create_link",
		Method:      http.MethodPost,
		Endpoints:   []string{"http://vendor.test/e1", "http://vendor.test/e2"},
		Credentials: testCredentials,
		Body:        map[string]string{"name": "x"},
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "HTTP 502: Bad Gateway", exhausted.LastMessage)
	assert.Len(t, exhausted.Attempts, 4)
	assert.Equal(t, LabelGeneral, exhausted.Attempts[1].Credential)
	assert.Equal(t, 0, exhausted.Attempts[1].Status)

	failures := multierr.Errors(exhausted.Failures)
	require.Len(t, failures, 4)
	assert.Contains(t, failures[0].Error(), "forbidden key")
	assert.Contains(t, failures[1].Error(), "connection refused")
	assert.Contains(t, failures[2].Error(), "bad template")

	for _, c := range doer.calls {
		assert.Equal(t, `{"name":"x"}`, c.Body)
		assert.Equal(t, "application/json", c.Headers.Get("Content-Type"))
	}
}

func TestExecuteMalformedSuccessBody(t *testing.T) {
	doer := &mockDoer{respond: func(*http.Request) (*http.Response, error) {
		return response(http.StatusOK, `not json`), nil
	}}
	executor := NewExecutor(doer, zap.NewNop(), nil)

	result, err := executor.Execute(context.Background(), Call{
		Operation:   "test",
		Method:      http.MethodGet,
		Endpoints:   []string{"http://vendor.test/e1"},
		Credentials: testCredentials,
	})

	require.NoError(t, err)
	assert.Nil(t, result.Body)
	assert.Equal(t, "not json", result.RawText)
	assert.Len(t, doer.calls, 1)
}

func TestExecuteCanceledContext(t *testing.T) {
	tests := []struct {
		name         string
		cancelBefore bool
		wantCalls    int
	}{
		{name: "canceled before the first attempt", cancelBefore: true, wantCalls: 0},
		{name: "canceled during the first attempt", wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancelBefore {
				cancel()
			}

			doer := &mockDoer{respond: func(*http.Request) (*http.Response, error) {
				cancel()
				return response(http.StatusInternalServerError, `{"message":"busy"}`), nil
			}}
			executor := NewExecutor(doer, zap.NewNop(), nil)

			_, err := executor.Execute(ctx, Call{
				Operation:   "test",
				Method:      http.MethodGet,
				Endpoints:   []string{"http://vendor.test/e1", "http://vendor.test/e2"},
				Credentials: testCredentials,
			})

			var exhausted *ExhaustedError
			require.ErrorAs(t, err, &exhausted)
			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, context.Canceled.Error(), exhausted.LastMessage)
			assert.Len(t, doer.calls, tt.wantCalls)
			assert.Len(t, exhausted.Attempts, tt.wantCalls)
		})
	}
}

func TestExecuteNoEndpointsMakesNoCalls(t *testing.T) {
	doer := &mockDoer{respond: func(*http.Request) (*http.Response, error) {
		return response(http.StatusOK, `{}`), nil
	}}
	recorder := &countingRecorder{}
	executor := NewExecutor(doer, zap.NewNop(), recorder)

	_, err := executor.Execute(context.Background(), Call{
		Operation:   "test",
		Method:      http.MethodGet,
		Credentials: testCredentials,
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.ErrorIs(t, err, ErrNoEndpoints)
	assert.NotErrorIs(t, err, ErrNoCredentials)
	assert.Equal(t, ErrNoEndpoints.Error(), exhausted.LastMessage)
	assert.Empty(t, exhausted.Attempts)
	assert.Empty(t, doer.calls)
	assert.Equal(t, 1, recorder.exhaustions)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		want   string
	}{
		{name: "message field", status: 400, body: map[string]any{"message": "m", "error": "e"}, want: "m"},
		{name: "error string", status: 401, body: map[string]any{"error": "e"}, want: "e"},
		{name: "error object", status: 422, body: map[string]any{"error": map[string]any{"message": "nested"}}, want: "nested"},
		{name: "empty message falls through", status: 404, body: map[string]any{"message": ""}, want: "HTTP 404: Not Found"},
		{name: "no body", status: 503, body: nil, want: "HTTP 503: Service Unavailable"},
		{name: "unknown status", status: 599, body: nil, want: "HTTP 599: unexpected status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage(tt.status, tt.body))
		})
	}
}
