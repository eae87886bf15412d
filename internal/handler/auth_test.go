package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newCreateUserRouter(role string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewAuthHandler(nil, nil)
	r := gin.New()
	r.POST("/users", func(c *gin.Context) {
		c.Set("role", role)
		h.CreateUser(c)
	})
	return r
}

func postUser(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateUser_RequiresAdminRole(t *testing.T) {
	r := newCreateUserRouter("manager")

	w := postUser(r, `{"username":"sara","password":"secret1"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateUser_RejectsBadPayload(t *testing.T) {
	r := newCreateUserRouter("admin")

	cases := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"short username", `{"username":"ab","password":"secret1"}`},
		{"short password", `{"username":"sara","password":"abc"}`},
		{"bad role", `{"username":"sara","password":"secret1","role":"root"}`},
		{"bad email", `{"username":"sara","password":"secret1","email":"not-an-email"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postUser(r, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}
