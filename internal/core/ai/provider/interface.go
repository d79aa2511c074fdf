package provider

import (
	"context"
	"fmt"
	"strings"
)

// Candidate 一組 (API 版本, 模型名稱)
type Candidate struct {
	APIVersion string `json:"api"`
	Model      string `json:"model"`
}

// Key 用於去重的鍵
func (c Candidate) Key() string {
	return c.APIVersion + ":" + c.Model
}

func (c Candidate) String() string {
	return c.APIVersion + "/" + c.Model
}

// ParseCandidate 解析 "version/model" 格式
func ParseCandidate(s string) (Candidate, error) {
	version, model, ok := strings.Cut(strings.TrimSpace(s), "/")
	version = strings.TrimSpace(version)
	model = strings.TrimSpace(model)
	if !ok || version == "" || model == "" {
		return Candidate{}, fmt.Errorf("invalid candidate %q, expected version/model", s)
	}
	return Candidate{APIVersion: version, Model: model}, nil
}

// Request 生成請求
type Request struct {
	Prompt          string
	Temperature     float64
	TopP            float64
	MaxOutputTokens int
}

// CallError 單次上游呼叫失敗（非 2xx、空內容或只有安全回饋）
type CallError struct {
	Status int
	Detail string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("upstream call failed (status %d): %s", e.Status, e.Detail)
}

// Provider 定義生成式文字服務介面
type Provider interface {
	// Generate 以指定候選模型生成文字；失敗時回傳 *CallError
	Generate(ctx context.Context, candidate Candidate, req *Request) (string, error)

	// ListModels 列出上游可用的模型名稱
	ListModels(ctx context.Context) ([]string, error)

	// Close 關閉提供者連接
	Close() error
}
