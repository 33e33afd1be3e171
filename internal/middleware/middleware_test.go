package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(GetClientFromContext(r.Context())))
})

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"web": "secret-1"})(okHandler)

	tests := []struct {
		name   string
		method string
		path   string
		header map[string]string
		status int
		body   string
	}{
		{"bearer", http.MethodPost, "/v1/analyze-requirements", map[string]string{"Authorization": "Bearer secret-1"}, 200, "web"},
		{"apikey header", http.MethodPost, "/v1/analyze-requirements", map[string]string{"apikey": "secret-1"}, 200, "web"},
		{"missing", http.MethodPost, "/v1/analyze-requirements", nil, 401, ""},
		{"wrong", http.MethodPost, "/v1/analyze-requirements", map[string]string{"Authorization": "Bearer nope"}, 401, ""},
		{"preflight", http.MethodOptions, "/v1/analyze-requirements", nil, 200, ""},
		{"health probe", http.MethodGet, "/health", nil, 200, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				var env map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
				assert.Equal(t, false, env["success"])
				return
			}
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestAPIKeyAuth_DisabledWithoutKeys(t *testing.T) {
	h := APIKeyAuth(nil)(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/analyze-requirements", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(NewRateLimiter(0.001, 2))(okHandler)

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/analyze-requirements", nil)
		req.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	rec := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "rate limit exceeded, please try again later", body["error"])
	ms, ok := body["retry_after_ms"].(float64)
	require.True(t, ok, "429 carries retry_after_ms like the saturated-model response")
	assert.Greater(t, ms, float64(0))

	// other clients keep their own budget
	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code)
}

func TestRateLimiter_Prune(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	_, ok := rl.Reserve("a")
	require.True(t, ok)

	assert.Equal(t, 0, rl.Prune(time.Now()))
	assert.Equal(t, 1, rl.Prune(time.Now().Add(11*time.Minute)))
}

func TestHealthHandler(t *testing.T) {
	healthy := CheckFunc(func(ctx context.Context) error { return nil })
	broken := CheckFunc(func(ctx context.Context) error { return errors.New("bucket missing") })

	rec := httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"database": healthy})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"database": healthy, "minio": broken})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "bucket missing", status.Checks["minio"].Message)
	assert.Equal(t, "healthy", status.Checks["database"].Status)
}

func TestHealthHandler_ChecksRunConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)
	// each check only passes once the other one is running too
	rendezvous := CheckFunc(func(ctx context.Context) error {
		started.Done()
		done := make(chan struct{})
		go func() { started.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	rec := httptest.NewRecorder()
	begin := time.Now()
	HealthHandler(map[string]HealthChecker{"database": rendezvous, "minio": rendezvous})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Less(t, time.Since(begin), time.Second)
}

func TestHealthHandler_NoCheckers(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Empty(t, status.Checks)
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/processes", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http.request", line["msg"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, float64(5), line["bytes"])
	assert.Equal(t, "/v1/processes", line["path"])
}

func TestValidate(t *testing.T) {
	type body struct {
		Specification string `validate:"notblank,max=10"`
	}
	assert.NoError(t, Validate(body{Specification: "ventas"}))
	assert.EqualError(t, Validate(body{Specification: "  \n"}), "specification is required")
	assert.EqualError(t, Validate(body{Specification: "muy largo de verdad"}), "specification exceeds 10 characters")
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hola\tmundo\nfin", SanitizeString("  hola\tmundo\x00\nfin\x07  "))
}

func TestPagination(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(500))
	assert.Equal(t, 7, ValidateLimit(7))
	assert.Equal(t, 1, ValidatePage(-3))
	assert.Equal(t, 4, ValidatePage(4))
	assert.Equal(t, MaxPage, ValidatePage(MaxPage))
	assert.Equal(t, MaxPage, ValidatePage(math.MaxInt))
}
