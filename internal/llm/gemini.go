package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel   = "gemini-2.0-flash"
)

// GeminiClient calls the Generative Language generateContent endpoint.
type GeminiClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGeminiClient creates a new Gemini client. An empty baseURL selects the
// public v1beta endpoint.
func NewGeminiClient(apiKey, baseURL string, httpClient *http.Client) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}, nil
}

// Name returns the provider name.
func (c *GeminiClient) Name() string {
	return ProviderGemini
}

// Models returns available models.
func (c *GeminiClient) Models() []string {
	return []string{"gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash"}
}

// Complete sends a completion request.
func (c *GeminiClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = geminiDefaultModel
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		// Transport errors quote the request URL; keep only the cause.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var eb geminiErrorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
			return nil, &ProviderError{Provider: ProviderGemini, StatusCode: resp.StatusCode, Message: eb.Error.Message}
		}
		return nil, newProviderError(ProviderGemini, resp.StatusCode, "API error (status %d): %s",
			resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		return nil, newProviderError(ProviderGemini, resp.StatusCode, "no candidates in response")
	}

	var content strings.Builder
	for _, part := range gr.Candidates[0].Content.Parts {
		content.WriteString(part.Text)
	}

	respModel := gr.ModelVersion
	if respModel == "" {
		respModel = model
	}

	return &CompletionResponse{
		Content:    content.String(),
		Model:      respModel,
		TokensIn:   gr.UsageMetadata.PromptTokenCount,
		TokensOut:  gr.UsageMetadata.CandidatesTokenCount,
		StopReason: gr.Candidates[0].FinishReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// buildRequest maps assistant turns to the "model" role and system text to
// systemInstruction.
func (c *GeminiClient) buildRequest(req *CompletionRequest) geminiRequest {
	system, turns := splitSystem(req.Messages)

	var gr geminiRequest
	gr.GenerationConfig.MaxOutputTokens = maxTokens(req)
	if system != "" {
		gr.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	gr.Contents = make([]geminiContent, 0, len(turns))
	for _, m := range turns {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		gr.Contents = append(gr.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	return gr
}
