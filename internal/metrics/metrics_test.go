package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandlerExposesCollectors(t *testing.T) {
	before := testutil.ToFloat64(Replies.WithLabelValues("test_code"))
	Replies.WithLabelValues("test_code").Inc()
	if got := testutil.ToFloat64(Replies.WithLabelValues("test_code")); got != before+1 {
		t.Fatalf("replies=%v want %v", got, before+1)
	}

	RelayedBytes.WithLabelValues(Upload).Add(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Result().Body)

	for _, want := range []string{
		`socksgate_replies_total{code="test_code"}`,
		`socksgate_relayed_bytes_total{direction="upload"}`,
		"socksgate_sessions_active",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
