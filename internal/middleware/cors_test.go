package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artswipe/backend/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newCORSRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func request(r http.Handler, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/ping", nil)
	req.Header.Set("Origin", origin)
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSProductionAllowsConfiguredOrigin(t *testing.T) {
	r := newCORSRouter(&config.Config{
		Env:            "production",
		AllowedOrigins: []string{"https://artswipe.example/"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	})

	w := request(r, http.MethodGet, "https://artswipe.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://artswipe.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = request(r, http.MethodGet, "https://evil.example")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORSDevelopmentAllowsAnyOrigin(t *testing.T) {
	r := newCORSRouter(&config.Config{
		Env:            "development",
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Content-Type"},
	})

	w := request(r, http.MethodOptions, "http://localhost:5174")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5174", w.Header().Get("Access-Control-Allow-Origin"))
}
