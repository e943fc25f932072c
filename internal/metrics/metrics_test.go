package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordToggle(t *testing.T) {
	before := testutil.ToFloat64(TogglesTotal.WithLabelValues("video", "on"))
	RecordToggle("video", true)
	assert.Equal(t, before+1, testutil.ToFloat64(TogglesTotal.WithLabelValues("video", "on")))
}

func TestRecordAuthEvent(t *testing.T) {
	before := testutil.ToFloat64(AuthEventsTotal.WithLabelValues("login", "failure"))
	RecordAuthEvent("login", errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(AuthEventsTotal.WithLabelValues("login", "failure")))
}
