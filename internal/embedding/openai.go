package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	OpenAIDefaultBaseURL   = "https://api.openai.com/v1"
	OpenAIDefaultModel     = "text-embedding-3-small"
	OpenAIDefaultDimension = 1536

	// openAIHTTPTimeout is generous: embedding a large issue export in
	// one request can take on the order of a minute.
	openAIHTTPTimeout = 120 * time.Second
)

// OpenAIOptions configures the OpenAI-compatible embedding client.
// Zero-valued fields fall back to the defaults above.
type OpenAIOptions struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	HTTPClient *http.Client
}

type openAIModel struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	modelName  string
	dimensions int
}

type openAIEmbedRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// NewOpenAIModel creates a Model backed by an OpenAI-compatible embeddings
// endpoint (including LiteLLM and other proxies).
func NewOpenAIModel(opts OpenAIOptions) (Model, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = OpenAIDefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = OpenAIDefaultModel
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = OpenAIDefaultDimension
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: openAIHTTPTimeout}
	}

	return &openAIModel{
		client:     opts.HTTPClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		modelName:  opts.Model,
		dimensions: opts.Dimensions,
	}, nil
}

func (m *openAIModel) Name() string    { return m.modelName }
func (m *openAIModel) Dimensions() int { return m.dimensions }
func (m *openAIModel) Close() error    { return nil }

func (m *openAIModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := openAIEmbedRequest{
		Input:          texts,
		Model:          m.modelName,
		EncodingFormat: "float",
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send embedding request to %s: %w", m.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodySnippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding API error (model=%s, status=%d): %s",
			m.modelName, resp.StatusCode, strings.TrimSpace(string(bodySnippet)))
	}

	var embedResp openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decode embedding response from %s: %w", m.baseURL, err)
	}

	// Sort by index to preserve input order.
	sort.Slice(embedResp.Data, func(i, j int) bool {
		return embedResp.Data[i].Index < embedResp.Data[j].Index
	})

	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d results for %d inputs (model=%s)",
			len(embedResp.Data), len(texts), m.modelName)
	}

	results := make([][]float32, len(embedResp.Data))
	for i, d := range embedResp.Data {
		results[i] = d.Embedding
	}
	return results, nil
}
