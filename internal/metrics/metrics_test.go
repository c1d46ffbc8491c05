package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIncExport(t *testing.T) {
	before := testutil.ToFloat64(ExportsTotal.WithLabelValues(SinkFile))
	IncExport(SinkFile)
	assert.Equal(t, before+1, testutil.ToFloat64(ExportsTotal.WithLabelValues(SinkFile)))

	unknown := testutil.ToFloat64(ExportsTotal.WithLabelValues("unknown"))
	IncExport("")
	assert.Equal(t, unknown+1, testutil.ToFloat64(ExportsTotal.WithLabelValues("unknown")))
}
