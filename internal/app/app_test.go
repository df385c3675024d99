package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studiosync/internal/app"
	"studiosync/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "0",
			RequestTimeout: 5 * time.Second,
			RateLimit:      100,
			AllowedOrigins: []string{"*"},
		},
		Redis:      config.RedisConfig{DeduperTTL: time.Hour},
		Repository: config.RepositoryConfig{Type: "inmemory", StorageKey: "studiosync_kanban_v1"},
		StudioAPI:  config.StudioAPIConfig{BaseURL: apiURL, Timeout: time.Second},
		Schedule:   config.ScheduleConfig{RefreshInterval: time.Minute, Location: "UTC"},
	}
}

// TestApp_Routes тестирует сборку роутера на хранилищах в памяти
func TestApp_Routes(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer api.Close()

	a := app.New(testConfig(api.URL + "/api"))
	require.NoError(t, a.Init(context.Background()))
	defer a.Close()

	tests := []struct {
		method string
		target string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/boards/kanban", http.StatusOK},
		{http.MethodGet, "/boards/projects", http.StatusOK},
		{http.MethodGet, "/boards/unknown", http.StatusNotFound},
		{http.MethodGet, "/schedule/week?anchor=2024-03-04", http.StatusOK},
		{http.MethodGet, "/schedule/calendar-feed", http.StatusOK},
		{http.MethodGet, "/schedule/lessons?start_date=2024-03-01&end_date=2024-03-31&status=scheduled", http.StatusOK},
		{http.MethodGet, "/resources", http.StatusOK},
		{http.MethodGet, "/students", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			w := httptest.NewRecorder()
			a.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestApp_InitRejectsBadAPIURL(t *testing.T) {
	a := app.New(testConfig("not a url"))
	assert.Error(t, a.Init(context.Background()))
	a.Close()
}
