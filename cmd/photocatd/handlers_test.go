package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sekai02/photocat/internal/api"
	"github.com/sekai02/photocat/internal/catalog"
	"github.com/sekai02/photocat/internal/conversation"
	"github.com/sekai02/photocat/internal/metrics"
	"github.com/sekai02/photocat/internal/persistence"
	"github.com/sekai02/photocat/internal/storage"
)

func newTestServer(t *testing.T, limiter *rate.Limiter) *httptest.Server {
	t.Helper()
	store := storage.NewMemStore()
	cat, err := catalog.Open(context.Background(),
		persistence.NewSnapshotter(store, persistence.RecordsKey), zap.NewNop())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("photocat_test", reg, zap.NewNop())
	svc := api.NewService(cat, store, collector, rand.New(rand.NewPCG(3, 3)), zap.NewNop())

	srv := httptest.NewServer(newHandler(svc, reg, zap.NewNop()).routes(limiter))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRecordEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	var rec catalog.Record
	status := do(t, http.MethodPost, srv.URL+"/v1/records", recordRequest{
		Location: "photos/a.jpg",
		Authors:  []string{"ArtStudio"},
		Tags:     []string{"fan-art"},
	}, &rec)
	require.Equal(t, http.StatusCreated, status)
	assert.EqualValues(t, 1, rec.ID)
	assert.Equal(t, []string{}, rec.Characters)

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, srv.URL+"/v1/records", recordRequest{}, nil))

	status = do(t, http.MethodPatch, srv.URL+"/v1/records/1", recordRequest{Tags: []string{"X", "fan-art"}}, &rec)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"fan-art", "X"}, rec.Tags)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPatch, srv.URL+"/v1/records/9", recordRequest{Tags: []string{"x"}}, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, srv.URL+"/v1/records/abc", nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, srv.URL+"/v1/records/9", nil, nil))

	status = do(t, http.MethodGet, srv.URL+"/v1/records/1", nil, &rec)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "photos/a.jpg", rec.Location)

	var list struct {
		Records []catalog.Record `json:"records"`
	}
	do(t, http.MethodGet, srv.URL+"/v1/records?tag=ART", nil, &list)
	assert.Len(t, list.Records, 1)

	do(t, http.MethodGet, srv.URL+"/v1/records?author=art", nil, &list)
	assert.Empty(t, list.Records)

	do(t, http.MethodGet, srv.URL+"/v1/records", nil, &list)
	assert.Len(t, list.Records, 1)

	var authors map[string][]string
	do(t, http.MethodGet, srv.URL+"/v1/authors", nil, &authors)
	assert.Equal(t, []string{"ArtStudio"}, authors["authors"])
}

func TestConversationEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	var opened map[string]string
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/v1/sessions", nil, &opened))
	sessionURL := srv.URL + "/v1/sessions/" + opened["session_id"]

	steps := []struct {
		in     conversation.Input
		prompt conversation.Prompt
	}{
		{in: conversation.Input{Text: "/add"}, prompt: conversation.PromptSendPhoto},
		{in: conversation.Input{Photo: &conversation.Photo{Location: "photos/x.jpg"}}, prompt: conversation.PromptEnterAuthors},
		{in: conversation.Input{Text: "Bob"}, prompt: conversation.PromptEnterTags},
		{in: conversation.Input{Text: "sky"}, prompt: conversation.PromptEnterCharacters},
		{in: conversation.Input{Text: "Hero"}, prompt: conversation.PromptPhotoAdded},
		{in: conversation.Input{Text: "/display"}, prompt: conversation.PromptResult},
	}
	for _, step := range steps {
		var reply struct {
			Prompt conversation.Prompt `json:"prompt"`
			State  string              `json:"state"`
		}
		require.Equal(t, http.StatusOK, do(t, http.MethodPost, sessionURL+"/input", step.in, &reply))
		assert.Equal(t, step.prompt, reply.Prompt)
	}

	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, sessionURL, nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPost, sessionURL+"/input", conversation.Input{Text: "/start"}, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, srv.URL+"/v1/sessions/nope/input", conversation.Input{}, nil))
}

func TestMetricsAndHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	assert.Equal(t, http.StatusNoContent, do(t, http.MethodGet, srv.URL+"/healthz", nil, nil))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "photocat_test_http_requests_total")
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, rate.NewLimiter(rate.Limit(0.001), 1))

	assert.Equal(t, http.StatusNoContent, do(t, http.MethodGet, srv.URL+"/healthz", nil, nil))
	assert.Equal(t, http.StatusTooManyRequests, do(t, http.MethodGet, srv.URL+"/healthz", nil, nil))
}
