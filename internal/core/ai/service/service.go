package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chefito-worker/internal/core/ai/provider"
	"chefito-worker/internal/infrastructure/config"
	"chefito-worker/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// attemptDetailLimit 每個失敗細節最多保留的字元數
const attemptDetailLimit = 500

// Attempt 單一候選模型的失敗紀錄
type Attempt struct {
	Model  string `json:"model"`
	API    string `json:"api"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// Generation 成功的生成結果
type Generation struct {
	Text      string
	Candidate provider.Candidate
	Attempts  []Attempt
}

// Service AI 服務：依序嘗試候選模型直到取得非空文字
type Service struct {
	provider    provider.Provider
	versions    []string
	fallbacks   []provider.Candidate
	genConfig   provider.Request
	parallel    bool
	maxParallel int
}

// NewService 創建 AI 服務
func NewService(cfg *config.GeminiConfig, p provider.Provider) (*Service, error) {
	if p == nil {
		return nil, errors.New("provider is required")
	}

	fallbacks := make([]provider.Candidate, 0, len(cfg.FallbackModels))
	for _, fm := range cfg.FallbackModels {
		c, err := provider.ParseCandidate(fm)
		if err != nil {
			return nil, err
		}
		fallbacks = append(fallbacks, c)
	}

	return &Service{
		provider:  p,
		versions:  cfg.APIVersions,
		fallbacks: fallbacks,
		genConfig: provider.Request{
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
		parallel:    cfg.Parallel,
		maxParallel: cfg.MaxParallel,
	}, nil
}

// KnownVersions 回傳所有可能用到的 API 版本
func KnownVersions(cfg *config.GeminiConfig) []string {
	seen := make(map[string]bool)
	var versions []string
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			versions = append(versions, v)
		}
	}
	for _, v := range cfg.APIVersions {
		add(v)
	}
	for _, fm := range cfg.FallbackModels {
		if c, err := provider.ParseCandidate(fm); err == nil {
			add(c.APIVersion)
		}
	}
	return versions
}

// Candidates 建立本次請求的候選清單：使用者模型在每個版本下優先，接著是固定備援清單，去除重複
func (s *Service) Candidates(userModel string) []provider.Candidate {
	userModel = strings.TrimPrefix(strings.TrimSpace(userModel), "models/")

	seen := make(map[string]bool)
	var out []provider.Candidate
	add := func(c provider.Candidate) {
		if seen[c.Key()] {
			return
		}
		seen[c.Key()] = true
		out = append(out, c)
	}

	if userModel != "" {
		for _, v := range s.versions {
			add(provider.Candidate{APIVersion: v, Model: userModel})
		}
	}
	for _, c := range s.fallbacks {
		add(c)
	}
	return out
}

// Generate 依優先順序嘗試候選模型，第一個回傳非空文字者勝出
func (s *Service) Generate(ctx context.Context, prompt, userModel string) (*Generation, error) {
	candidates := s.Candidates(userModel)
	if len(candidates) == 0 {
		return nil, common.NewConfigurationError("no model candidates configured")
	}

	req := s.genConfig
	req.Prompt = prompt

	start := time.Now()
	var (
		gen *Generation
		err error
	)
	if s.parallel {
		gen, err = s.generateParallel(ctx, candidates, &req)
	} else {
		gen, err = s.generateSequential(ctx, candidates, &req)
	}
	if err != nil {
		return nil, err
	}

	common.LogInfo("Gemini success",
		zap.String("candidate", gen.Candidate.String()),
		zap.Int("failed_attempts", len(gen.Attempts)),
		zap.Duration("耗時", time.Since(start)),
	)
	return gen, nil
}

func (s *Service) generateSequential(ctx context.Context, candidates []provider.Candidate, req *provider.Request) (*Generation, error) {
	var attempts []Attempt
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, exhausted(attempts, err)
		}
		text, err := s.provider.Generate(ctx, c, req)
		if err == nil && text != "" {
			return &Generation{Text: text, Candidate: c, Attempts: attempts}, nil
		}
		attempts = append(attempts, newAttempt(c, err))
	}
	return nil, exhausted(attempts, ctx.Err())
}

// generateParallel 同時呼叫所有候選，但仍以優先順序選出第一個成功者
func (s *Service) generateParallel(ctx context.Context, candidates []provider.Candidate, req *provider.Request) (*Generation, error) {
	type result struct {
		text string
		err  error
	}
	results := make([]result, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	for i, c := range candidates {
		g.Go(func() error {
			text, err := s.provider.Generate(gctx, c, req)
			results[i] = result{text: text, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var attempts []Attempt
	for i, c := range candidates {
		if results[i].err == nil && results[i].text != "" {
			return &Generation{Text: results[i].text, Candidate: c, Attempts: attempts}, nil
		}
		attempts = append(attempts, newAttempt(c, results[i].err))
	}
	return nil, exhausted(attempts, ctx.Err())
}

func newAttempt(c provider.Candidate, err error) Attempt {
	a := Attempt{Model: c.Model, API: c.APIVersion, Status: http.StatusBadGateway}
	var callErr *provider.CallError
	switch {
	case errors.As(err, &callErr):
		a.Status = callErr.Status
		a.Detail = callErr.Detail
	case err != nil:
		a.Detail = err.Error()
	default:
		a.Detail = "empty response text"
	}
	a.Detail = common.Truncate(a.Detail, attemptDetailLimit)
	return a
}

func exhausted(attempts []Attempt, cause error) error {
	common.LogError("All Gemini attempts failed",
		zap.Int("attempts", len(attempts)),
		zap.Any("details", attempts),
	)
	if attempts == nil {
		attempts = []Attempt{}
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		e := common.NewError(common.ErrCodeGatewayTimeout, "Request timeout", http.StatusGatewayTimeout, cause)
		return e.WithDetail("attempts", attempts)
	}
	e := common.NewError(common.ErrCodeUpstreamExhausted, "Gemini failed for all candidates", http.StatusBadGateway, cause)
	return e.WithDetail("attempts", attempts)
}

// ListModels 轉呼叫提供者
func (s *Service) ListModels(ctx context.Context) ([]string, error) {
	models, err := s.provider.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	return models, nil
}

// Close 關閉提供者
func (s *Service) Close() error {
	if err := s.provider.Close(); err != nil {
		return fmt.Errorf("failed to close provider: %w", err)
	}
	return nil
}
