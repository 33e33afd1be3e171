package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/requirement-analyzer/internal/application/analysis"
	domai "github.com/bryanwahyu/requirement-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/requirement-analyzer/internal/domain/failures"
	"github.com/bryanwahyu/requirement-analyzer/internal/domain/requirements"
	"github.com/bryanwahyu/requirement-analyzer/internal/infra/ai/prompt"
	"github.com/bryanwahyu/requirement-analyzer/internal/middleware"
)

type fakeAnalyzer struct {
	result   analysis.Result
	err      error
	calls    int
	gotSpec  string
	ctxErr   error
	process  *requirements.Process
	listed   [2]int
	failures []*failures.Failure
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, specification string) (analysis.Result, error) {
	f.calls++
	f.gotSpec = specification
	f.ctxErr = ctx.Err()
	return f.result, f.err
}

func (f *fakeAnalyzer) ListProcesses(ctx context.Context, page, pageSize int) ([]*requirements.Process, error) {
	f.listed = [2]int{page, pageSize}
	return []*requirements.Process{{ID: 2, Name: "B"}, {ID: 1, Name: "A"}}, nil
}

func (f *fakeAnalyzer) GetProcess(ctx context.Context, id int64) (*requirements.Process, error) {
	if f.process == nil || f.process.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.process, nil
}

func (f *fakeAnalyzer) ListFailures(ctx context.Context, runID string, limit int) ([]*failures.Failure, error) {
	return f.failures, nil
}

func newTestServer(t *testing.T, svc Analyzer) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewRouter(svc, Options{Logger: logger, MaxSpecChars: 50}))
	t.Cleanup(srv.Close)
	return srv
}

func postSpec(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var env map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func TestAnalyze_Success(t *testing.T) {
	svc := &fakeAnalyzer{result: analysis.Result{
		RunID: "run-1",
		Model: "qwen/qwen3-235b-a22b:free",
		Processes: []requirements.Process{{
			ID: 1, Name: "Ventas",
			Subprocesses: []requirements.Subprocess{{
				ID: 2, ProcessID: 1, Name: "Facturacion",
				UseCases: []requirements.UseCase{{ID: 3, SubprocessID: 2, Name: "Emitir", Kind: requirements.KindNonFunctional}},
			}},
		}},
	}}
	srv := newTestServer(t, svc)

	for _, path := range []string{"/v1/analyze-requirements", "/functions/v1/analyze-requirements"} {
		resp, env := postSpec(t, srv, path, `{"specification":"  Sistema de ventas\u0000 "}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "run-1", resp.Header.Get("X-Run-ID"))
		assert.Equal(t, true, env["success"])
		assert.Equal(t, "qwen/qwen3-235b-a22b:free", env["model"])
		assert.Equal(t, "run-1", env["run_id"])

		data := env["data"].([]any)
		require.Len(t, data, 1)
		proc := data[0].(map[string]any)
		assert.Equal(t, float64(1), proc["id_proceso"])
		uc := proc["subprocesos"].([]any)[0].(map[string]any)["casos_uso"].([]any)[0].(map[string]any)
		assert.Equal(t, float64(2), uc["tipo_caso_uso"])
		assert.Equal(t, "Non-Functional", uc["tipo_caso_uso_label"])
	}
	assert.Equal(t, "Sistema de ventas", svc.gotSpec)
	assert.NoError(t, svc.ctxErr)
}

func TestAnalyze_BadInputNeverReachesService(t *testing.T) {
	svc := &fakeAnalyzer{}
	srv := newTestServer(t, svc)

	for name, body := range map[string]string{
		"empty":      `{"specification":""}`,
		"whitespace": `{"specification":"   \n\t"}`,
		"missing":    `{}`,
		"not json":   `specification=hola`,
		"too long":   fmt.Sprintf(`{"specification":%q}`, strings.Repeat("a", 51)),
	} {
		t.Run(name, func(t *testing.T) {
			resp, env := postSpec(t, srv, "/v1/analyze-requirements", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, false, env["success"])
			assert.NotEmpty(t, env["error"])
		})
	}
	assert.Equal(t, 0, svc.calls)
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		retry   float64
		details bool
	}{
		{"empty spec", analysis.ErrEmptySpecification, http.StatusBadRequest, 0, false},
		{"no credits", fmt.Errorf("generate: %w", &domai.ProviderError{Model: "m", StatusCode: 402}), http.StatusPaymentRequired, 0, false},
		{"saturated", fmt.Errorf("generate: %w", &domai.SaturatedError{RetryAfter: 30 * time.Second}), http.StatusTooManyRequests, 30000, false},
		{"incomplete", fmt.Errorf("parse: check_complete: %w", prompt.ErrIncompleteResponse), http.StatusUnprocessableEntity, 0, true},
		{"malformed", fmt.Errorf("parse: %w", prompt.ErrMalformedJSON), http.StatusUnprocessableEntity, 0, true},
		{"structure", fmt.Errorf("parse: %w", prompt.ErrMissingProcesses), http.StatusUnprocessableEntity, 0, true},
		{"persist", fmt.Errorf("persist: %w", requirements.ErrInvalidRecord), http.StatusInternalServerError, 0, true},
		{"other", errors.New("boom"), http.StatusInternalServerError, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeAnalyzer{result: analysis.Result{RunID: "run-x"}, err: tt.err})
			resp, env := postSpec(t, srv, "/v1/analyze-requirements", `{"specification":"hola"}`)

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, false, env["success"])
			assert.NotEmpty(t, env["error"])
			assert.Equal(t, "run-x", resp.Header.Get("X-Run-ID"))
			if tt.retry > 0 {
				assert.Equal(t, tt.retry, env["retry_after_ms"])
				assert.Equal(t, "30", resp.Header.Get("Retry-After"))
			} else {
				assert.NotContains(t, env, "retry_after_ms")
			}
			if tt.details {
				assert.NotEmpty(t, env["details"])
			}
		})
	}
}

func TestAnalyze_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/functions/v1/analyze-requirements", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization, apikey, content-type, x-client-info")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	allowed := strings.ToLower(resp.Header.Get("Access-Control-Allow-Headers"))
	for _, h := range []string{"authorization", "apikey", "content-type", "x-client-info"} {
		assert.Contains(t, allowed, h)
	}
	body, _ := io.ReadAll(resp.Body)
	assert.Empty(t, body)
}

func TestProcesses(t *testing.T) {
	svc := &fakeAnalyzer{process: &requirements.Process{ID: 7, Name: "Ventas", Subprocesses: []requirements.Subprocess{}}}
	srv := newTestServer(t, svc)

	resp, err := http.Get(srv.URL + "/v1/processes?page=2&page_size=500")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, [2]int{2, 100}, svc.listed)

	resp, err = http.Get(srv.URL + "/v1/processes?page=9223372036854775807&page_size=100")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, [2]int{middleware.MaxPage, 100}, svc.listed)

	resp, err = http.Get(srv.URL + "/v1/processes/7")
	require.NoError(t, err)
	var env map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ventas", env["data"].(map[string]any)["nombre"])

	resp, err = http.Get(srv.URL + "/v1/processes/8")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/processes/abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFailuresAndProbes(t *testing.T) {
	svc := &fakeAnalyzer{failures: []*failures.Failure{{ID: 1, RunID: "r", Phase: failures.PhaseParse, Message: "m"}}}
	srv := newTestServer(t, svc)

	resp, err := http.Get(srv.URL + "/v1/failures?limit=5")
	require.NoError(t, err)
	var env map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	resp.Body.Close()
	assert.Len(t, env["data"], 1)

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
