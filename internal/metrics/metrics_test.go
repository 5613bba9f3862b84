package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YangQing-Lin/hooky-cli/internal/quicksend"
	"github.com/YangQing-Lin/hooky-cli/internal/webhook"
)

func TestDispatchOutcome(t *testing.T) {
	tests := []struct {
		result webhook.Result
		want   string
	}{
		{webhook.Result{OK: true, Status: 200}, OutcomeSuccess},
		{webhook.Result{OK: false, Status: 500}, OutcomeHTTPError},
		{webhook.Result{OK: false, Error: "offline"}, OutcomeNetworkError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DispatchOutcome(tt.result))
	}
}

func TestObserveDispatch(t *testing.T) {
	m := New()
	m.ObserveDispatch(webhook.Config{Method: "GET"}, webhook.Result{OK: true, Status: 200}, 20*time.Millisecond)
	m.ObserveDispatch(webhook.Config{}, webhook.Result{OK: false, Status: 404}, time.Millisecond)
	m.ObserveDispatch(webhook.Config{}, webhook.Result{Error: "x"}, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues(OutcomeHTTPError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues(OutcomeNetworkError)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.dispatchDuration))
}

func TestObserveOutcome(t *testing.T) {
	m := New()
	m.ObserveOutcome(quicksend.Outcome{State: quicksend.StateDispatch, Via: quicksend.StateRuleEvaluation})
	m.ObserveOutcome(quicksend.Outcome{State: quicksend.StateFallback, Reason: quicksend.ReasonNoStore})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.quickSendTotal.WithLabelValues("dispatch", "rule_evaluation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.quickSendTotal.WithLabelValues("fallback", "")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.SetMenuItems(3)
	m.ObserveDispatch(webhook.Config{Method: "POST"}, webhook.Result{OK: true, Status: 201}, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `hooky_dispatch_total{outcome="success"} 1`)
	assert.Contains(t, body, "hooky_menu_items 3")
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
