package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveLedger(t *testing.T) {
	before := testutil.ToFloat64(LedgerOperations.WithLabelValues("approve", "error"))

	ObserveLedger("approve", errors.New("boom"))
	ObserveLedger("approve", nil)

	assert.Equal(t, before+1, testutil.ToFloat64(LedgerOperations.WithLabelValues("approve", "error")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(LedgerOperations.WithLabelValues("approve", "ok")), 1.0)
}
