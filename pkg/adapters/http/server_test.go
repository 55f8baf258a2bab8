package http

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/rowflow"
	"github.com/aretw0/rowflow/pkg/adapters/memory"
	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/aretw0/rowflow/pkg/observability"
	"github.com/aretw0/rowflow/pkg/session"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workSchema = `{"name":"work","variables":{"age":{"type":"numeric","min":0,"max":120},"name":{"type":"text"}}}`

func newTestHandler(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	h, err := NewHandler(rowflow.New(), opts...)
	require.NoError(t, err)
	return h
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) ValidateResponse {
	t.Helper()
	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestHealthAndInfo(t *testing.T) {
	h := newTestHandler(t)

	w := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = get(t, h, "/info")
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "rowflow-http", info["app"])
	assert.Equal(t, "0.1.0", info["api_version"])
	assert.Equal(t, false, info["row_tracking"])
}

func TestOpenAPIDocument(t *testing.T) {
	h := newTestHandler(t)

	w := get(t, h, "/openapi.yaml")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/validate:")

	w = get(t, h, "/swagger")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SwaggerUIBundle")
}

func TestValidate_InlineSchema(t *testing.T) {
	h := newTestHandler(t)

	w := post(t, h, "/validate", `{"schema":`+workSchema+`,"row":{"age":30}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeResponse(t, w)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, resp.RequestID, w.Header().Get("X-Request-Id"))
	assert.Nil(t, resp.Diff)
	require.NotNil(t, resp.Result)
	assert.Equal(t, domain.SummaryIncomplete, resp.Result.Summary)
	assert.Equal(t, "name", resp.Result.Current)
	assert.Equal(t, []string{"age", "name"}, resp.Result.Order)
	assert.Equal(t, domain.StateValid, resp.Result.Feedback["age"].State)
}

func TestValidate_YAMLStringSchema(t *testing.T) {
	h := newTestHandler(t)

	body := `{
		"schema": "variables:\n  age: {type: numeric, max: 120}\n",
		"row": {"age": 200},
		"options": {"multi_state_output": false}
	}`
	w := post(t, h, "/validate", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeResponse(t, w)
	assert.Equal(t, domain.SummaryProblems, resp.Result.Summary)
	assert.Nil(t, resp.Result.Feedback)
	assert.Equal(t, domain.StateOutOfRange, resp.Result.LegacyStates["age"])
}

func TestValidate_ReusesRequestID(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader(`{"schema":`+workSchema+`,"row":{}}`))
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", decodeResponse(t, w).RequestID)
}

func TestValidate_BadRequests(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"not json", `{`, http.StatusBadRequest},
		{"missing row", `{"schema":` + workSchema + `}`, http.StatusBadRequest},
		{"unknown field", `{"schema":` + workSchema + `,"row":{},"extra":1}`, http.StatusBadRequest},
		{"unknown option", `{"schema":` + workSchema + `,"row":{},"options":{"fast":true}}`, http.StatusBadRequest},
		{"schema without variables", `{"schema":{"name":"x"},"row":{}}`, http.StatusBadRequest},
		{"unparseable schema", `{"schema":"variables:\n  a: {type: colour}\n","row":{}}`, http.StatusBadRequest},
		{"unknown enabling", `{"schema":{"variables":{"a":{"type":"text","enabling":"nope"}}},"row":{}}`, http.StatusUnprocessableEntity},
		{"row id without tracking", `{"schema":` + workSchema + `,"row":{},"row_id":"r1"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, h, "/validate", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestValidate_RowTracking(t *testing.T) {
	h := newTestHandler(t, WithSessions(session.NewManager(memory.NewStore())))

	body := `{"schema":` + workSchema + `,"row":{"age":30},"row_id":"r1"}`

	first := decodeResponse(t, post(t, h, "/validate", body))
	require.NotNil(t, first.Diff)
	require.NotNil(t, first.Diff.Summary)
	assert.Equal(t, domain.SummaryIncomplete, *first.Diff.Summary)

	again := decodeResponse(t, post(t, h, "/validate", body))
	assert.Nil(t, again.Diff)

	answered := decodeResponse(t, post(t, h, "/validate", `{"schema":`+workSchema+`,"row":{"age":30,"name":"Ana"},"row_id":"r1"}`))
	require.NotNil(t, answered.Diff)
	assert.Equal(t, domain.SummaryOK, *answered.Diff.Summary)
	assert.Contains(t, answered.Diff.Feedback, "name")
	assert.NotContains(t, answered.Diff.Feedback, "age")

	w := get(t, h, "/rows")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rows":["r1"]}`, w.Body.String())

	w = get(t, h, "/rows/r1")
	require.Equal(t, http.StatusOK, w.Code)
	var stored domain.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	assert.Equal(t, domain.SummaryOK, stored.Summary)

	del := httptest.NewRecorder()
	h.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/rows/r1", nil))
	assert.Equal(t, http.StatusNoContent, del.Code)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/rows/r1").Code)
}

func TestRowsRoutesNeedTracking(t *testing.T) {
	h := newTestHandler(t)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/rows").Code)
}

func TestMermaid(t *testing.T) {
	h := newTestHandler(t)

	w := post(t, h, "/mermaid", `{"schema":`+workSchema+`}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "graph TD")
	assert.NotContains(t, w.Body.String(), "classDef")

	w = post(t, h, "/mermaid", `{"schema":`+workSchema+`,"row":{"age":30}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "class age valid;")
	assert.Contains(t, w.Body.String(), "class name current;")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	v := rowflow.New(rowflow.WithLifecycleHooks(metrics.Hooks()))
	h, err := NewHandler(v, WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, post(t, h, "/validate", `{"schema":`+workSchema+`,"row":{}}`).Code)

	w := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `rowflow_validations_total{summary="empty"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/validate", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents_RowDiffs(t *testing.T) {
	srv, err := NewServer(rowflow.New(), WithSessions(session.NewManager(memory.NewStore())))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/rows/r1/events?watch=summary", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewReader(resp.Body)
	readData := func() string {
		for {
			line, err := lines.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}
	assert.Equal(t, "connected", readData())
	require.Equal(t, 1, srv.Streams.Subscribers("r1"))

	send := func(row string) {
		r, err := http.Post(ts.URL+"/validate", "application/json",
			strings.NewReader(`{"schema":`+workSchema+`,"row":`+row+`,"row_id":"r1"}`))
		require.NoError(t, err)
		io.Copy(io.Discard, r.Body)
		r.Body.Close()
		require.Equal(t, http.StatusOK, r.StatusCode)
	}

	send(`{"age":30}`)
	// Unchanged result: nothing is broadcast.
	send(`{"age":30}`)
	send(`{"age":30,"name":"Ana"}`)

	var first, second domain.ResultDiff
	require.NoError(t, json.Unmarshal([]byte(readData()), &first))
	require.NoError(t, json.Unmarshal([]byte(readData()), &second))
	assert.Equal(t, domain.SummaryIncomplete, *first.Summary)
	assert.Equal(t, domain.SummaryOK, *second.Summary)
}

func TestMatchesWatch(t *testing.T) {
	msg := `{"feedback":{"age":{"state":"valid","disabled":false,"not_enabled":false,"has_value":true,"has_problem":false,"pending":false}}}`

	assert.True(t, matchesWatch(msg, nil))
	assert.True(t, matchesWatch(msg, parseWatch("feedback")))
	assert.True(t, matchesWatch(msg, parseWatch(" summary , feedback ")))
	assert.False(t, matchesWatch(msg, parseWatch("summary,current")))
	assert.True(t, matchesWatch("not json", parseWatch("summary")))
}

func TestStreamManager_Unsubscribe(t *testing.T) {
	sm := NewStreamManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ch, cancel := sm.Subscribe("r1")
	assert.Equal(t, 1, sm.Subscribers("r1"))

	sm.Broadcast("r1", "hello")
	assert.Equal(t, "hello", <-ch)

	cancel()
	assert.Equal(t, 0, sm.Subscribers("r1"))
	_, open := <-ch
	assert.False(t, open)

	// No subscribers: must not block.
	sm.Broadcast("r1", "dropped")
}
