package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"blogfeed/app/auth"
	"blogfeed/app/models"
	"blogfeed/app/monitoring"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// captureLogs redirects the standard logger for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	orig := log.StandardLogger().Out
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(orig) })
	return &buf
}

func TestLogger(t *testing.T) {
	buf := captureLogs(t)

	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	output := buf.String()
	assert.Contains(t, output, "method=GET")
	assert.Contains(t, output, "path=/test")
	assert.Contains(t, output, "status=418")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRecoverer(t *testing.T) {
	captureLogs(t)
	errorPage := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("server error page"))
	})
	handler := Recoverer(errorPage)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server error page", rec.Body.String())
}

func TestContentTypeJSON(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		accept string
		want   string
	}{
		{"api route", "/api/", "", "application/json"},
		{"accept header", "/", "application/json", "application/json"},
		{"html route", "/leo/", "text/html", ""},
		{"short path", "/", "", ""},
		{"api-like username", "/apiary/", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Header().Get("Content-Type"))
		})
	}
}

func TestMetrics(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Metrics)
	router.HandleFunc("/metrics-test/{name}/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics-test/a/", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics-test/b/", nil))

	rec := httptest.NewRecorder()
	monitoring.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(),
		`blogfeed_http_requests_total{method="GET",route="/metrics-test/{name}/",status="202"} 2`)
}

type fakeSessions map[string]*models.User

func (f fakeSessions) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "broken" {
		return nil, errors.New("store down")
	}
	return f[token], nil
}

func TestAuthenticate(t *testing.T) {
	captureLogs(t)
	leo := &models.User{ID: 1, Username: "leo"}
	var seen *models.User
	handler := Authenticate(fakeSessions{"good": leo})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.Viewer(r.Context())
	}))

	for token, want := range map[string]*models.User{"": nil, "good": leo, "stale": nil, "broken": nil} {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, want, seen, "token %q", token)
	}
}

func TestRequireLogin(t *testing.T) {
	called := false
	handler := RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/new/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login/?next=/new/", rec.Header().Get("Location"))
	assert.False(t, called)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/follow/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"login required"}`, rec.Body.String())
	assert.False(t, called)

	req := httptest.NewRequest(http.MethodPost, "/new/", nil)
	req = req.WithContext(auth.WithViewer(req.Context(), &models.User{ID: 1}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.True(t, called)
}
