package toxicity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeServer(t *testing.T, score float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NotEmpty(t, r.URL.Query().Get("key"))

		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Comment.Text)

		resp := analyzeResponse{}
		resp.AttributeScores = map[string]struct {
			SummaryScore struct {
				Value float64 `json:"value"`
			} `json:"summaryScore"`
		}{
			"TOXICITY": {SummaryScore: struct {
				Value float64 `json:"value"`
			}{Value: score}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestClassifyAboveThreshold(t *testing.T) {
	server := analyzeServer(t, 0.91)
	defer server.Close()

	client := NewPerspectiveClient("key", server.URL, time.Second)
	res := client.Classify(context.Background(), "awful take")

	assert.True(t, res.IsToxic)
	assert.InDelta(t, 0.91, res.Score, 0.001)
}

func TestClassifyBelowThreshold(t *testing.T) {
	server := analyzeServer(t, 0.2)
	defer server.Close()

	client := NewPerspectiveClient("key", server.URL, time.Second)
	res := client.Classify(context.Background(), "nice movie")

	assert.False(t, res.IsToxic)
	assert.InDelta(t, 0.2, res.Score, 0.001)
}

func TestClassifyFailsOpenOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewPerspectiveClient("key", server.URL, time.Second)
	res := client.Classify(context.Background(), "anything")

	assert.False(t, res.IsToxic)
	assert.Zero(t, res.Score)
}

func TestClassifyFailsOpenWhenUnreachable(t *testing.T) {
	client := NewPerspectiveClient("key", "http://127.0.0.1:1", 100*time.Millisecond)
	res := client.Classify(context.Background(), "anything")

	assert.False(t, res.IsToxic)
}

func TestClassifySkipsWithoutKeyOrText(t *testing.T) {
	client := NewPerspectiveClient("", "http://unused", time.Second)
	assert.Zero(t, client.Classify(context.Background(), "text"))

	client = NewPerspectiveClient("key", "http://unused", time.Second)
	assert.Zero(t, client.Classify(context.Background(), ""))
}
