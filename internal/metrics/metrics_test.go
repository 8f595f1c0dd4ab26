package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/v1/extract/{kind}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/extract/zapato", http.NoBody))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/v1/extract/{kind}", "400"))
	require.GreaterOrEqual(t, got, 1.0)
	require.NotZero(t, testutil.CollectAndCount(httpRequestDuration))
}

func TestRegister_Idempotent(t *testing.T) {
	require.NotPanics(t, func() {
		Register()
		Register()
	})
	RecoveryStrategyTotal.WithLabelValues("material", "heuristic").Inc()
	require.GreaterOrEqual(t, testutil.ToFloat64(RecoveryStrategyTotal.WithLabelValues("material", "heuristic")), 1.0)
}
