package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDBQuery_RecordsDurationAndErrors(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("select", "internal"))

	RecordDBQuery("select", "inventory", 10*time.Millisecond, nil)
	RecordDBQuery("select", "inventory", 5*time.Millisecond, assertErr)

	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("select", "internal"))
	assert.Equal(t, before+1, after)
}

func TestRecordAPIRequest_IncrementsCounters(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/v1/drives", "200"))

	RecordAPIRequest("GET", "/v1/drives", "200", 3*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/v1/drives", "200"))
	assert.Equal(t, before+1, after)
}

func TestTrackActiveRequest_IncrementsAndDecrements(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	assert.Equal(t, start+1, testutil.ToFloat64(APIActiveRequests))

	TrackActiveRequest(false)
	assert.Equal(t, start, testutil.ToFloat64(APIActiveRequests))
}

var assertErr = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
