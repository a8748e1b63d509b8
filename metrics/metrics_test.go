package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersExported(t *testing.T) {
	m := New()
	m.Logins.WithLabelValues("user", "ok").Inc()
	m.TollAmount.Add(42.5)

	if got := testutil.ToFloat64(m.Logins.WithLabelValues("user", "ok")); got != 1 {
		t.Errorf("logins = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "toll_charged_amount_total 42.5") {
		t.Error("expected toll_charged_amount_total in exposition")
	}
}

func TestNewIsIndependent(t *testing.T) {
	a, b := New(), New()
	a.TollCharged.Inc()
	if got := testutil.ToFloat64(b.TollCharged); got != 0 {
		t.Errorf("second registry saw %v charges", got)
	}
}
