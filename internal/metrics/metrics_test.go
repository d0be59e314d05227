package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordInteraction(t *testing.T) {
	before := testutil.ToFloat64(InteractionsTotal.WithLabelValues("chat", "pending"))
	RecordInteraction("chat", "pending")
	assert.Equal(t, before+1, testutil.ToFloat64(InteractionsTotal.WithLabelValues("chat", "pending")))
}

func TestRecordHTTPRequest(t *testing.T) {
	RecordHTTPRequest("GET", "/health", 200, 5*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(HTTPRequestDuration), 1)
}
