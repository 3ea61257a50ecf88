package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorsRecord(t *testing.T) {
	before := testutil.ToFloat64(RiskEnhancements.WithLabelValues("discarded"))
	RiskEnhancements.WithLabelValues("discarded").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RiskEnhancements.WithLabelValues("discarded")))

	WorkerJobsActive.WithLabelValues("assess-risk").Inc()
	WorkerJobsActive.WithLabelValues("assess-risk").Dec()
	assert.Equal(t, 0.0, testutil.ToFloat64(WorkerJobsActive.WithLabelValues("assess-risk")))

	DocumentRiskScore.Observe(7.5)
	assert.Equal(t, 1, testutil.CollectAndCount(DocumentRiskScore))
}
