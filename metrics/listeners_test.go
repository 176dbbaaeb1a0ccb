package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBeforeMetricsListeners(t *testing.T) {
	calls := 0
	unregister := OnBeforeMetricsRequested(func() {
		calls++
	})

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, 1, calls)
	assert.Contains(t, rec.Body.String(), "preload_active_loads")

	unregister()
	runBeforeMetricsRequested()
	assert.Equal(t, 1, calls)
}
