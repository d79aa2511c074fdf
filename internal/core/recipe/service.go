package recipe

import (
	"context"
	"time"

	"chefito-worker/internal/core/ai/service"
	"chefito-worker/internal/infrastructure/config"
	"chefito-worker/internal/pkg/common"

	"go.uber.org/zap"
)

// Generator 依候選模型清單取得模型文字
type Generator interface {
	Generate(ctx context.Context, prompt, userModel string) (*service.Generation, error)
}

// Service 食譜生成服務
type Service struct {
	generator  Generator
	apiKey     string
	defaultMax int
	maxLimit   int
}

// NewService 創建新的食譜服務
func NewService(generator Generator, cfg *config.Config) *Service {
	return &Service{
		generator:  generator,
		apiKey:     cfg.Gemini.APIKey,
		defaultMax: cfg.Recipes.DefaultMax,
		maxLimit:   cfg.Recipes.MaxLimit,
	}
}

// ClampMax 依服務設定的預設值與上限解析 max
func (s *Service) ClampMax(v interface{}) int {
	return ClampMax(v, s.defaultMax, s.maxLimit)
}

// Generate 驗證輸入、呼叫模型、解析並正規化食譜
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if len(req.Ingredients) == 0 {
		return nil, common.NewValidationError("ingredients must be a non-empty string[]")
	}
	if s.apiKey == "" {
		return nil, common.NewConfigurationError("Missing GOOGLE_API_KEY")
	}
	if s.generator == nil {
		return nil, common.NewConfigurationError("generation provider not configured")
	}

	max := req.Max
	if max <= 0 || max > s.maxLimit {
		max = s.ClampMax(max)
	}

	start := time.Now()
	prompt := BuildPrompt(req.Ingredients, req.Prefs, max)
	common.LogInfo("Generating recipes",
		zap.Int("ingredients", len(req.Ingredients)),
		zap.Int("max", max),
		zap.String("model", req.Model),
	)

	gen, err := s.generator.Generate(ctx, prompt, req.Model)
	if err != nil {
		return nil, err
	}

	raw, err := ParseModelText(gen.Text)
	if err != nil {
		return nil, err
	}

	recipes := Normalize(raw, max)
	common.LogInfo("Recipes generated",
		zap.Int("parsed", len(raw)),
		zap.Int("valid", len(recipes)),
		zap.String("candidate", gen.Candidate.String()),
		zap.Duration("耗時", time.Since(start)),
	)

	return &GenerateResult{
		Recipes:    recipes,
		Model:      gen.Candidate.Model,
		APIVersion: gen.Candidate.APIVersion,
	}, nil
}
