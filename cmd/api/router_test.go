package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-attendance/internal/handler"
	"github.com/noah-isme/smart-attendance/internal/models"
	"github.com/noah-isme/smart-attendance/internal/service"
	appErrors "github.com/noah-isme/smart-attendance/pkg/errors"
	"github.com/noah-isme/smart-attendance/pkg/config"
)

type staticTokens map[string]*models.JWTClaims

func (s staticTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrUnauthorized
}

func testRouter() http.Handler {
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1"}
	metrics := service.NewMetricsService()
	return newRouter(cfg, zap.NewNop(), routes{
		tokens: staticTokens{
			"student": {UserID: "s1", Role: models.RoleStudent},
			"teacher": {UserID: "t1", Role: models.RoleTeacher},
		},
		metrics:  metrics,
		auth:     handler.NewAuthHandler(nil),
		users:    handler.NewUserHandler(nil),
		courses:  handler.NewCourseHandler(nil),
		sessions: handler.NewSessionHandler(nil, ""),
		reports:  handler.NewReportHandler(nil),
		health:   handler.NewMetricsHandler(metrics, nil),
	})
}

func TestRouterGuards(t *testing.T) {
	r := testRouter()
	cases := []struct {
		method, path, token string
		status              int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/api/v1/redeem", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/sessions/abc/redeem", "bogus", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/sessions", "student", http.StatusForbidden},
		{http.MethodGet, "/api/v1/sessions/abc/absentees", "student", http.StatusForbidden},
		{http.MethodGet, "/api/v1/attendance/export", "student", http.StatusForbidden},
		{http.MethodGet, "/api/v1/users", "teacher", http.StatusForbidden},
		{http.MethodGet, "/docs/index.html", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestCORSConfig(t *testing.T) {
	open := corsConfig(nil)
	assert.True(t, open.AllowAllOrigins)

	restricted := corsConfig([]string{" https://app.example.com ", "*"})
	assert.False(t, restricted.AllowAllOrigins)
	assert.Equal(t, []string{"https://app.example.com"}, restricted.AllowOrigins)
	assert.Contains(t, restricted.AllowHeaders, "Authorization")
}
