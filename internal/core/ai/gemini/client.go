package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chefito-worker/internal/core/ai/provider"
	"chefito-worker/internal/infrastructure/config"
	"chefito-worker/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// apiKeyHeader API key 以標頭傳送，不放進 URL
const apiKeyHeader = "x-goog-api-key"

// Client 以 REST API 呼叫 Gemini generateContent
type Client struct {
	config *config.GeminiConfig
	client *resty.Client
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	PromptFeedback json.RawMessage `json:"promptFeedback,omitempty"`
}

// NewClient 創建 Gemini REST 客戶端
func NewClient(cfg *config.GeminiConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Client{
		config: cfg,
		client: client,
	}
}

// Generate 對單一候選模型呼叫 generateContent
func (c *Client) Generate(ctx context.Context, candidate provider.Candidate, req *provider.Request) (string, error) {
	body := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: req.Prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxOutputTokens,
		},
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(apiKeyHeader, c.config.APIKey).
		SetPathParams(map[string]string{
			"version": candidate.APIVersion,
			"model":   candidate.Model,
		}).
		SetBody(body).
		Post("/{version}/models/{model}:generateContent")
	if err != nil {
		common.LogUpstreamCall("gemini", candidate.String(), time.Since(start), err)
		return "", &provider.CallError{Status: http.StatusBadGateway, Detail: err.Error()}
	}

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		callErr := &provider.CallError{Status: resp.StatusCode(), Detail: resp.String()}
		common.LogUpstreamCall("gemini", candidate.String(), time.Since(start), callErr)
		return "", callErr
	}

	text, detail := extractText(resp.Body())
	if text == "" {
		callErr := &provider.CallError{Status: http.StatusBadGateway, Detail: detail}
		common.LogUpstreamCall("gemini", candidate.String(), time.Since(start), callErr)
		return "", callErr
	}

	common.LogUpstreamCall("gemini", candidate.String(), time.Since(start), nil)
	common.LogDebug("Gemini response text",
		zap.String("candidate", candidate.String()),
		zap.Int("content_length", len(text)),
	)
	return text, nil
}

// extractText 取第一個候選的所有 text parts；沒有內容時回傳 promptFeedback（或整個 body）作為細節
func extractText(body []byte) (string, string) {
	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", string(body)
	}

	if len(result.Candidates) > 0 {
		texts := make([]string, 0, len(result.Candidates[0].Content.Parts))
		for _, p := range result.Candidates[0].Content.Parts {
			texts = append(texts, p.Text)
		}
		if text := strings.TrimSpace(strings.Join(texts, "\n")); text != "" {
			return text, ""
		}
	}

	if len(result.PromptFeedback) > 0 && string(result.PromptFeedback) != "null" {
		return "", string(result.PromptFeedback)
	}
	return "", string(body)
}

// ListModels 列出 v1 可用模型
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(apiKeyHeader, c.config.APIKey).
		Get("/v1/models")
	if err != nil {
		return nil, common.NewUpstreamError("ListModels failed", http.StatusBadGateway, err).
			WithDetail("detail", err.Error())
	}

	var body struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	parseErr := json.Unmarshal(resp.Body(), &body)

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		var detail interface{} = map[string]interface{}{}
		if err := json.Unmarshal(resp.Body(), &detail); err != nil {
			detail = map[string]interface{}{}
		}
		return nil, common.NewUpstreamError("ListModels failed", resp.StatusCode(), nil).
			WithDetail("status", resp.StatusCode()).
			WithDetail("detail", detail)
	}
	if parseErr != nil {
		common.LogWarn("ListModels returned non-JSON body", zap.Error(parseErr))
	}

	names := make([]string, 0, len(body.Models))
	for _, m := range body.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

var _ provider.Provider = (*Client)(nil)

// String 方便日誌輸出
func (c *Client) String() string {
	return fmt.Sprintf("gemini-rest(%s)", c.config.BaseURL)
}
