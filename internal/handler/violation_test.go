package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newOpenViolationRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewViolationHandler(nil, nil, nil, nil)
	r := gin.New()
	r.GET("/violations/open", h.GetOpen)
	return r
}

func TestGetOpenViolation_RejectsBadParams(t *testing.T) {
	r := newOpenViolationRouter()

	cases := []struct {
		name  string
		query string
	}{
		{"missing worker", "geofence_id=100"},
		{"missing geofence", "worker_id=1"},
		{"non numeric worker", "worker_id=abc&geofence_id=100"},
		{"zero geofence", "worker_id=1&geofence_id=0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/violations/open?"+tc.query, nil)
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), "invalid") {
				t.Errorf("expected validation error, got %s", w.Body.String())
			}
		})
	}
}
