package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chefito-worker/internal/core/ai/provider"
	"chefito-worker/internal/infrastructure/config"
	"chefito-worker/internal/pkg/common"

	"google.golang.org/genai"
)

// SDKClient 透過 google.golang.org/genai 呼叫 Gemini；每個 API 版本一個 client
type SDKClient struct {
	config  *config.GeminiConfig
	clients map[string]*genai.Client
}

// NewSDKClient 為所有已知 API 版本建立 genai client
func NewSDKClient(ctx context.Context, cfg *config.GeminiConfig, versions []string) (*SDKClient, error) {
	clients := make(map[string]*genai.Client, len(versions))
	for _, version := range versions {
		if _, ok := clients[version]; ok {
			continue
		}
		opts := genai.HTTPOptions{APIVersion: version}
		if cfg.BaseURL != "" {
			opts.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      cfg.APIKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPOptions: opts,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client for %s: %w", version, err)
		}
		clients[version] = client
	}

	return &SDKClient{config: cfg, clients: clients}, nil
}

// Generate 對單一候選模型呼叫 GenerateContent
func (s *SDKClient) Generate(ctx context.Context, candidate provider.Candidate, req *provider.Request) (string, error) {
	client, ok := s.clients[candidate.APIVersion]
	if !ok {
		return "", &provider.CallError{
			Status: http.StatusBadRequest,
			Detail: fmt.Sprintf("unknown api version %q", candidate.APIVersion),
		}
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, candidate.Model,
		[]*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(float32(req.Temperature)),
			TopP:            genai.Ptr(float32(req.TopP)),
			MaxOutputTokens: int32(req.MaxOutputTokens),
		},
	)
	if err != nil {
		callErr := toCallError(err)
		common.LogUpstreamCall("gemini-sdk", candidate.String(), time.Since(start), callErr)
		return "", callErr
	}

	text := responseText(resp)
	if text == "" {
		detail := "{}"
		if resp != nil && resp.PromptFeedback != nil {
			if b, err := json.Marshal(resp.PromptFeedback); err == nil {
				detail = string(b)
			}
		} else if b, err := json.Marshal(resp); err == nil {
			detail = string(b)
		}
		callErr := &provider.CallError{Status: http.StatusBadGateway, Detail: detail}
		common.LogUpstreamCall("gemini-sdk", candidate.String(), time.Since(start), callErr)
		return "", callErr
	}

	common.LogUpstreamCall("gemini-sdk", candidate.String(), time.Since(start), nil)
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	texts := make([]string, 0, len(resp.Candidates[0].Content.Parts))
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			texts = append(texts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

func toCallError(err error) *provider.CallError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &provider.CallError{Status: apiErr.Code, Detail: apiErr.Message}
	}
	return &provider.CallError{Status: http.StatusBadGateway, Detail: err.Error()}
}

// ListModels 使用 v1 client 列出模型
func (s *SDKClient) ListModels(ctx context.Context) ([]string, error) {
	client, ok := s.clients["v1"]
	if !ok {
		for _, c := range s.clients {
			client = c
			break
		}
	}
	if client == nil {
		return nil, common.NewConfigurationError("no genai client configured")
	}

	page, err := client.Models.List(ctx, nil)
	if err != nil {
		callErr := toCallError(err)
		return nil, common.NewUpstreamError("ListModels failed", callErr.Status, err).
			WithDetail("status", callErr.Status).
			WithDetail("detail", callErr.Detail)
	}

	names := make([]string, 0, len(page.Items))
	for _, m := range page.Items {
		if m != nil {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

// Close genai client 不持有需釋放的資源
func (s *SDKClient) Close() error {
	return nil
}

var _ provider.Provider = (*SDKClient)(nil)

// NewProvider 依 backend 設定建立提供者；未設定 API key 時一律使用 REST，請求會在呼叫前被拒絕
func NewProvider(ctx context.Context, cfg *config.GeminiConfig, versions []string) (provider.Provider, error) {
	if cfg.Backend == "sdk" && cfg.APIKey != "" {
		return NewSDKClient(ctx, cfg, versions)
	}
	return NewClient(cfg), nil
}
