// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRecipe = `
context:
  version: "0.7.7"
package:
  name: xtl
  version: ${{ version }}
requirements:
  host:
    - python
`

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	s := New(opts...)
	s.SetReady(true)
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestNew(t *testing.T) {
	s := New(WithName("test"), WithVersion("v1.2.3"))
	require.NotNil(t, s)
	assert.NotNil(t, s.config)
	assert.NotNil(t, s.httpServer)
	assert.NotNil(t, s.rateLimiter)
	assert.Equal(t, "test", s.config.Name)
	assert.Equal(t, ":8080", s.httpServer.Addr)
}

func TestHealthEndpoint(t *testing.T) {
	s := New()
	w := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	w = do(t, s, http.MethodPost, "/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		ready          bool
		expectedStatus int
	}{
		{name: "ready state", ready: true, expectedStatus: http.StatusOK},
		{name: "not ready state", ready: false, expectedStatus: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.SetReady(tt.ready)
			w := do(t, s, http.MethodGet, "/ready", nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestDefaultRoute(t *testing.T) {
	s := newTestServer(t, WithVersion("v9"))
	w := do(t, s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"v9"`)
	assert.Contains(t, w.Body.String(), "POST /v1/render")

	w = do(t, s, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenderEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/v1/render", RenderRequest{
		Recipe:         testRecipe,
		VariantConfig:  "python: ['3.11', '3.12']\n",
		TargetPlatform: "linux-aarch64",
		Overrides:      map[string]string{"version": "0.8.0"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	requestID := w.Header().Get("X-Request-Id")
	_, err := uuid.Parse(requestID)
	require.NoError(t, err)

	var resp struct {
		RequestID string `json:"requestId"`
		Outputs   []struct {
			Variant map[string]string `json:"variant"`
			Recipe  struct {
				Package struct {
					Version string `json:"version"`
				} `json:"package"`
				Requirements struct {
					Host []string `json:"host"`
				} `json:"requirements"`
				Subdir string `json:"subdir"`
			} `json:"recipe"`
		} `json:"outputs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, requestID, resp.RequestID)
	require.Len(t, resp.Outputs, 2)
	assert.Equal(t, map[string]string{"python": "3.12"}, resp.Outputs[1].Variant)
	assert.Equal(t, []string{"python 3.12.*"}, resp.Outputs[1].Recipe.Requirements.Host)
	assert.Equal(t, "0.8.0", resp.Outputs[0].Recipe.Package.Version)
	assert.Equal(t, "linux-aarch64", resp.Outputs[0].Recipe.Subdir)
}

func TestRenderEndpointAllSkipped(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodPost, "/v1/render", RenderRequest{
		Recipe:         "package:\n  name: foo\n  version: \"1.0\"\nbuild:\n  skip: linux\n",
		TargetPlatform: "linux-64",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"outputs":[]`)
}

func TestRenderEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   any
		status int
		code   string
	}{
		{
			name:   "wrong method",
			method: http.MethodGet,
			status: http.StatusMethodNotAllowed,
			code:   ErrCodeMethodNotAllowed,
		},
		{
			name:   "unknown field",
			method: http.MethodPost,
			body:   map[string]any{"recipe": testRecipe, "bogus": true},
			status: http.StatusBadRequest,
			code:   "INVALID_REQUEST",
		},
		{
			name:   "missing recipe",
			method: http.MethodPost,
			body:   RenderRequest{},
			status: http.StatusBadRequest,
			code:   "INVALID_REQUEST",
		},
		{
			name:   "unknown platform",
			method: http.MethodPost,
			body:   RenderRequest{Recipe: testRecipe, TargetPlatform: "plan9-64"},
			status: http.StatusBadRequest,
			code:   "INVALID_REQUEST",
		},
		{
			name:   "zip mismatch",
			method: http.MethodPost,
			body: RenderRequest{
				Recipe:        testRecipe,
				VariantConfig: "python: ['3.11', '3.12']\nnumpy: ['2.0']\nzip_keys: [[python, numpy]]\n",
			},
			status: http.StatusUnprocessableEntity,
			code:   "ZIP_LENGTH_MISMATCH",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, newTestServer(t), tt.method, "/v1/render", tt.body)
			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestRenderEndpointStageDetails(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodPost, "/v1/render", RenderRequest{
		Recipe:         "package:\n  name: foo\n  version: ${{ nope }}\n",
		TargetPlatform: "linux-64",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "RENDER", resp.Code)
	assert.Equal(t, "rendering", resp.Details["stage"])
	assert.Equal(t, "package.version", resp.Details["path"])
	assert.EqualValues(t, 3, resp.Details["line"])
}

func TestRenderEndpointBodyLimit(t *testing.T) {
	cfg := NewConfig()
	cfg.MaxRequestBytes = 64
	s := newTestServer(t, WithConfig(cfg))

	w := do(t, s, http.MethodPost, "/v1/render", RenderRequest{Recipe: strings.Repeat("x", 256)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestMatchEndpoint(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		req  MatchRequest
		want bool
	}{
		{
			name: "version and build",
			req:  MatchRequest{Spec: "python >=3.10 *_cpython", Name: "python", Version: "3.11.4", Build: "h1_cpython"},
			want: true,
		},
		{
			name: "version too old",
			req:  MatchRequest{Spec: "python >=3.12", Name: "python", Version: "3.11.4"},
			want: false,
		},
		{
			name: "other package",
			req:  MatchRequest{Spec: "numpy", Name: "python", Version: "3.11.4"},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/v1/match", tt.req)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var resp MatchResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Matches)
		})
	}

	w := do(t, s, http.MethodPost, "/v1/match", MatchRequest{Spec: "python >=>3", Name: "python", Version: "3.11"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/v1/render", nil)
	req.Header.Set("X-Request-Id", id)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, id, w.Header().Get("X-Request-Id"))

	req = httptest.NewRequest(http.MethodGet, "/v1/render", nil)
	req.Header.Set("X-Request-Id", "not-a-uuid")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid", w.Header().Get("X-Request-Id"))
}

func TestRateLimit(t *testing.T) {
	cfg := NewConfig()
	cfg.RateLimit = 0.001
	cfg.RateLimitBurst = 1
	s := newTestServer(t, WithConfig(cfg))

	w := do(t, s, http.MethodGet, "/v1/render", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = do(t, s, http.MethodGet, "/v1/render", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, ErrCodeRateLimitExceeded, decodeError(t, w).Code)

	// system endpoints are not rate limited
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", nil).Code)
}

func TestPanicRecovery(t *testing.T) {
	s := newTestServer(t)
	h := s.withMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL", decodeError(t, w).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodGet, "/v1/render", nil)
	do(t, s, http.MethodPost, "/v1/render", RenderRequest{Recipe: testRecipe, TargetPlatform: "linux-64"})
	do(t, s, http.MethodPost, "/v1/render", RenderRequest{
		Recipe:         "package:\n  name: foo\n  version: ${{ nope }}\n",
		TargetPlatform: "linux-64",
	})

	w := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "rattler_http_requests_total")
	assert.Contains(t, body, "rattler_http_render_outputs_count")
	assert.Contains(t, body, `rattler_http_render_failures_total{code="RENDER",stage="rendering"}`)
}

func TestNewConfigEnv(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "5")
	cfg := NewConfig()
	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, "5s", cfg.ShutdownTimeout.String())

	t.Setenv("PORT", "not-a-port")
	assert.Equal(t, 8080, NewConfig().Port)
}
