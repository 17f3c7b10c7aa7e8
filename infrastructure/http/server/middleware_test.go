package server

import (
	"bubble-relay/observability"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newBareServer() *Server {
	return &Server{
		log:     logs.GetLoggerFromLevel(slog.LevelDebug),
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
	}
}

func TestRecoverer_PanicBeforeWriteIsInternalError(t *testing.T) {
	req := require.New(t)
	s := newBareServer()
	handler := s.instrument(s.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/client/x", nil))

	req.Equal(http.StatusInternalServerError, rec.Code)
	req.JSONEq(`{"error":"internal error"}`, rec.Body.String())
}

func TestRecoverer_PanicAfterWriteKeepsResponse(t *testing.T) {
	req := require.New(t)
	s := newBareServer()
	handler := s.instrument(s.recoverer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		panic("late failure")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/client/x", nil))

	req.Equal(http.StatusAccepted, rec.Code)
	req.Equal("partial", rec.Body.String())
}

func TestStatusRecorder_KeepsFirstStatus(t *testing.T) {
	req := require.New(t)
	inner := httptest.NewRecorder()
	rec := newStatusRecorder(inner)

	_, err := rec.Write([]byte("ok"))
	req.NoError(err)
	rec.WriteHeader(http.StatusTeapot)

	req.True(rec.wroteHeader)
	req.Equal(http.StatusOK, rec.status)
	req.Equal(http.StatusOK, inner.Code)
	req.Same(rec, newStatusRecorder(rec))
}
