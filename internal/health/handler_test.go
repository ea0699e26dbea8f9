// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func healthy() Checker {
	return pingFunc(func(context.Context) error { return nil })
}

func failing() Checker {
	return pingFunc(func(context.Context) error { return errors.New("down") })
}

func TestReadinessAllHealthy(t *testing.T) {
	h := NewHandler(
		Dependency{Name: "database", Checker: healthy()},
		Dependency{Name: "redis", Checker: healthy()},
	)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	require.Len(t, body.Checks, 2)
	assert.Equal(t, "database", body.Checks[0].Name)
	assert.Equal(t, "redis", body.Checks[1].Name)
}

func TestReadinessDegraded(t *testing.T) {
	h := NewHandler(
		Dependency{Name: "database", Checker: healthy()},
		Dependency{Name: "redis", Checker: failing()},
	)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.False(t, body.Checks[1].Healthy)
	assert.Equal(t, "ping failed", body.Checks[1].Message)
}

func TestShutdownFlipsLiveness(t *testing.T) {
	h := NewHandler()

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.SetShutdown(true)

	rec = httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "shutting_down")
}
