package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Intent("getAreas")
	m.Intent("getAreas")
	m.Outcome("getAreas", "getAreasSucceed", false, time.Millisecond)
	m.Outcome("getAreas", "areaOperationFailed", true, time.Millisecond)
	m.Cascade(nil)
	m.Cascade(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.intents.WithLabelValues("getAreas")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("getAreasSucceed", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("areaOperationFailed", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cascades.WithLabelValues("failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Intent("x")
	m.Outcome("x", "y", true, 0)
	m.Cascade(nil)
}
