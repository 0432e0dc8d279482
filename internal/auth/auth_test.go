// -------------------------------------------------------------------------------
// Auth Tests
//
// Project: KCloud / Author: Alex Freidah
// -------------------------------------------------------------------------------

package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func testRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(token))
	r.GET("/songs", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     string
		wantStatus int
	}{
		{"valid token", "sekrit", "Bearer sekrit", http.StatusOK},
		{"wrong token", "sekrit", "Bearer wrong", http.StatusForbidden},
		{"missing header", "sekrit", "", http.StatusForbidden},
		{"wrong scheme", "sekrit", "Basic sekrit", http.StatusForbidden},
		{"bare token without scheme", "sekrit", "sekrit", http.StatusForbidden},
		{"auth disabled", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRouter(tt.token)
			req := httptest.NewRequest(http.MethodGet, "/songs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden && !strings.Contains(w.Body.String(), "ACCESSDENIEDERROR") {
				t.Errorf("body = %s, want ACCESSDENIEDERROR code", w.Body.String())
			}
		})
	}
}
