package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordScan_Outcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordScan(0, time.Millisecond, nil)
	m.RecordScan(3, time.Millisecond, nil)
	m.RecordScan(0, time.Millisecond, errors.New("db down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanTicks.WithLabelValues("idle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanTicks.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanTicks.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PostsPublished))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "INTERNAL_ERROR")
		m.RecordScan(1, time.Millisecond, nil)
	})
}
