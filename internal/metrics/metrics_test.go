package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("test_op", "4xx"))

	RecordAPIRequest("test_op", 404, 10*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("test_op", "4xx"))
	if after-before != 1 {
		t.Errorf("APIRequestsTotal delta = %v, want 1", after-before)
	}
}

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueriesTotal.WithLabelValues("INSERT", "test_table", "error"))

	RecordDBQuery("INSERT", "test_table", time.Millisecond, errors.New("boom"))

	after := testutil.ToFloat64(DBQueriesTotal.WithLabelValues("INSERT", "test_table", "error"))
	if after-before != 1 {
		t.Errorf("DBQueriesTotal delta = %v, want 1", after-before)
	}
}

func TestStatusClass(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "network_error"},
		{200, "2xx"},
		{204, "2xx"},
		{302, "3xx"},
		{400, "4xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		if got := statusClass(tt.code); got != tt.want {
			t.Errorf("statusClass(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
