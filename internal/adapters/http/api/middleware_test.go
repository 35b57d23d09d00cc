package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		kind     string
		severity string
	}{
		{http.StatusBadRequest, "client_error", "medium"},
		{http.StatusNotFound, "not_found", "low"},
		{http.StatusTooManyRequests, "backpressure", "medium"},
		{http.StatusInternalServerError, "server_error", "high"},
		{http.StatusBadGateway, "upstream_error", "high"},
		{http.StatusServiceUnavailable, "unavailable", "high"},
	}
	for _, tt := range tests {
		kind, severity := classifyStatus(tt.status)
		if kind != tt.kind || severity != tt.severity {
			t.Errorf("classifyStatus(%d) = %s/%s, want %s/%s", tt.status, kind, severity, tt.kind, tt.severity)
		}
	}
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped by the metrics middleware", t, func() {
		var inner http.ResponseWriter
		h := MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			inner = w
			w.WriteHeader(http.StatusBadGateway)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("upstream down"))
		}, "test")

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/test", http.NoBody))

		Convey("Then the first status and the body size should be recorded", func() {
			rec, ok := inner.(*statusRecorder)
			So(ok, ShouldBeTrue)
			So(rec.status, ShouldEqual, http.StatusBadGateway)
			So(rec.bytes, ShouldEqual, int64(len("upstream down")))
			So(rec.Unwrap() == http.ResponseWriter(w), ShouldBeTrue)
			So(w.Code, ShouldEqual, http.StatusBadGateway)
		})
	})
}
