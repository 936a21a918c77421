package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIngestMetricsExposesSharedSeries(t *testing.T) {
	RegisterIngestMetrics()

	IngestMessagesTotal.WithLabelValues("stored").Inc()
	IncTransactionCreated("expense", "device")
	RateLimitRequestsTotal.WithLabelValues("allowed").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	assert.True(t, names["sms_ingest_messages_total"])
	assert.True(t, names["transactions_created_total"], "transaction counter must be exported by the ingest service")
	assert.True(t, names["rate_limit_requests_total"], "rate limit counter must be exported by the ingest service")
}
