package embedding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewOpenAIModel_RequiresKey tests that a missing API key is an
// error.
func TestNewOpenAIModel_RequiresKey(t *testing.T) {
	_, err := NewOpenAIModel(OpenAIOptions{})
	assert.Error(t, err)
}

// TestNewOpenAIModel_Defaults tests default model name and dimensions.
func TestNewOpenAIModel_Defaults(t *testing.T) {
	m, err := NewOpenAIModel(OpenAIOptions{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, OpenAIDefaultModel, m.Name())
	assert.Equal(t, OpenAIDefaultDimension, m.Dimensions())
}

// TestEmbedBatch tests a successful batch call, including re-sorting
// responses by index.
func TestEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Input, 2)

		// Answer out of order; the client must restore input order.
		resp := map[string]interface{}{
			"model": req.Model,
			"data": []map[string]interface{}{
				{"index": 1, "embedding": []float32{0, 1}},
				{"index": 0, "embedding": []float32{1, 0}},
			},
		}
		writeErr := json.NewEncoder(w).Encode(resp)
		assert.NoError(t, writeErr)
	}))
	defer srv.Close()

	m, err := NewOpenAIModel(OpenAIOptions{BaseURL: srv.URL, APIKey: "test-key", Dimensions: 2})
	require.NoError(t, err)

	vecs, err := m.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1}, vecs[1])
}

// TestEmbedBatch_Empty tests that an empty batch never hits the network.
func TestEmbedBatch_Empty(t *testing.T) {
	m, err := NewOpenAIModel(OpenAIOptions{BaseURL: "http://127.0.0.1:1", APIKey: "k"})
	require.NoError(t, err)

	vecs, err := m.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

// TestEmbedBatch_APIError tests that non-2xx responses surface as errors
// with the status code.
func TestEmbedBatch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	m, err := NewOpenAIModel(OpenAIOptions{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = m.EmbedBatch(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=429")
}

// TestEmbedBatch_CountMismatch tests rejection of responses with a wrong
// result count.
func TestEmbedBatch_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"data": []map[string]interface{}{{"index": 0, "embedding": []float32{1}}},
		}
		writeErr := json.NewEncoder(w).Encode(resp)
		assert.NoError(t, writeErr)
	}))
	defer srv.Close()

	m, err := NewOpenAIModel(OpenAIOptions{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = m.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 inputs")
}
