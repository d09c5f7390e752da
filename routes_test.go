package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewRouter(t *testing.T) {
	app := testApp(nil)
	router := testRouter(app)

	if router == nil {
		t.Fatal("expected router to be created")
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := testRouter(testApp(nil))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 for /metrics, got %d", w.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := testRouter(testApp(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestCorsMiddleware(t *testing.T) {
	allowedOrigins := "http://localhost:3000"
	middleware := corsMiddleware(allowedOrigins)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("sets CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != allowedOrigins {
			t.Errorf("expected Access-Control-Allow-Origin %q, got %q", allowedOrigins, got)
		}

		if got := w.Header().Get("Access-Control-Allow-Methods"); got == "" {
			t.Error("expected Access-Control-Allow-Methods header")
		}

		if got := w.Header().Get("Access-Control-Allow-Headers"); got == "" {
			t.Error("expected Access-Control-Allow-Headers header")
		}
	})

	t.Run("handles OPTIONS preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200 for OPTIONS, got %d", w.Code)
		}
	})
}
