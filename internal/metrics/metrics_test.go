package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSessionOpenedAndClosed(t *testing.T) {
	SessionsActive.Set(0)
	before := testutil.ToFloat64(SessionsOpenedTotal)

	RecordSessionOpened()
	assert.Equal(t, before+1, testutil.ToFloat64(SessionsOpenedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(SessionsActive))

	RecordSessionClosed(ReasonClientClose)
	assert.Equal(t, float64(0), testutil.ToFloat64(SessionsActive))
	assert.Equal(t, float64(1), testutil.ToFloat64(SessionsClosedTotal.WithLabelValues(ReasonClientClose)))
}

func TestRecordToolInvocation(t *testing.T) {
	ToolInvocationsTotal.Reset()

	RecordToolInvocation("create_task", "success")
	RecordToolInvocation("create_task", "success")
	RecordToolInvocation("create_task", "error")

	assert.Equal(t, float64(2), testutil.ToFloat64(ToolInvocationsTotal.WithLabelValues("create_task", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ToolInvocationsTotal.WithLabelValues("create_task", "error")))
}

func TestRecordOutboundQueueDepth(t *testing.T) {
	RecordOutboundQueueDepth(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(OutboundQueueDepth))
}

func TestRecordModelStreamError(t *testing.T) {
	ModelStreamErrorsTotal.Reset()

	RecordModelStreamError(StreamErrorReset)
	RecordModelStreamError(StreamErrorOther)
	RecordModelStreamError(StreamErrorReset)

	assert.Equal(t, float64(2), testutil.ToFloat64(ModelStreamErrorsTotal.WithLabelValues(StreamErrorReset)))
	assert.Equal(t, float64(1), testutil.ToFloat64(ModelStreamErrorsTotal.WithLabelValues(StreamErrorOther)))
}
