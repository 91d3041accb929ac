package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveRegistration("email", OutcomeSuccess)
	m.ObserveRegistration("email", OutcomeSuccess)
	m.ObserveRegistration("phone", OutcomeFailure)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Registrations.WithLabelValues("email", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations.WithLabelValues("phone", OutcomeFailure)))

	m.ObserveRollback("drop_schema", nil)
	m.ObserveRollback("delete_admin", errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RollbackActions.WithLabelValues("drop_schema", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RollbackActions.WithLabelValues("delete_admin", OutcomeFailure)))

	m.ObserveDeleted("verification_codes", 0)
	m.ObserveDeleted("verification_codes", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.HousekeepingDeleted.WithLabelValues("verification_codes")))

	m.ObserveStep("create_schema", 20*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.ProvisioningStep))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRegistration("email", OutcomeSuccess)
		m.ObserveStep("x", time.Second)
		m.ObserveRollback("x", nil)
		m.ObserveConfirmationEmail(OutcomeSkipped)
		m.ObserveMismatch("x")
		m.ObserveDeleted("x", 1)
	})

	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	m.Middleware("/x")(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveConfirmationEmail(OutcomeFailure)

	h := m.Middleware("/v1/admin/register")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/admin/register", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `hivecert_confirmation_emails_total{outcome="failure"} 1`)
	assert.True(t, strings.Contains(body, `hivecert_http_request_duration_seconds_count{method="POST",route="/v1/admin/register",status="201"} 1`))
}
