package recipe

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	recipeService "chefito-worker/internal/core/recipe"
	"chefito-worker/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Generator 食譜生成
type Generator interface {
	Generate(ctx context.Context, req recipeService.GenerateRequest) (*recipeService.GenerateResult, error)
	ClampMax(v interface{}) int
}

// ModelLister 列出上游模型
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Handler 食譜處理程序
type Handler struct {
	generator Generator
	models    ModelLister
	apiKey    string
}

// NewHandler 創建新的食譜處理程序
func NewHandler(generator Generator, models ModelLister, apiKey string) *Handler {
	return &Handler{
		generator: generator,
		models:    models,
		apiKey:    apiKey,
	}
}

// HandleGenerateRecipes POST /recipes/generate
func (h *Handler) HandleGenerateRecipes(c *gin.Context) {
	requestID := common.RequestID(c)

	body, ok := bindJSONObject(c, requestID)
	if !ok {
		return
	}

	req := recipeService.GenerateRequest{
		Ingredients: ingredientList(body["ingredients"]),
		Max:         h.generator.ClampMax(body["max"]),
		Prefs:       prefsMap(body["prefs"]),
	}
	if model, ok := body["model"].(string); ok {
		req.Model = strings.TrimSpace(model)
	}

	common.LogInfo("開始處理食譜生成請求",
		zap.String("request_id", requestID),
		zap.String("client_ip", c.ClientIP()),
		zap.Strings("ingredients", req.Ingredients),
		zap.Int("max", req.Max),
	)

	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		common.LogError("食譜生成失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		common.WriteErrorResponse(c, err)
		return
	}

	common.LogInfo("食譜生成完成",
		zap.String("request_id", requestID),
		zap.Int("recipes", len(result.Recipes)),
	)
	c.JSON(http.StatusOK, result)
}

// HandleListModels GET /models
func (h *Handler) HandleListModels(c *gin.Context) {
	requestID := common.RequestID(c)

	if h.apiKey == "" {
		common.WriteErrorResponse(c, common.NewConfigurationError("Missing GOOGLE_API_KEY"))
		return
	}

	models, err := h.models.ListModels(c.Request.Context())
	if err != nil {
		common.LogError("ListModels failed",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		common.WriteErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"models": models})
}

// bindJSONObject 讀取 JSON 物件；空 body 視為 {}
func bindJSONObject(c *gin.Context, requestID string) (map[string]interface{}, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		common.WriteErrorResponse(c, common.NewValidationError("Invalid JSON").
			WithDetail("detail", err.Error()))
		return nil, false
	}

	body := map[string]interface{}{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return body, true
	}

	var v interface{}
	if err := common.ParseJSONBytes(raw, &v); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		common.WriteErrorResponse(c, common.NewValidationError("Invalid JSON").
			WithDetail("detail", err.Error()))
		return nil, false
	}
	if obj, ok := v.(map[string]interface{}); ok {
		body = obj
	}
	return body, true
}

// ingredientList 只接受字串或數字元素，去除空白項
func ingredientList(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		var s string
		switch t := item.(type) {
		case string:
			s = strings.TrimSpace(t)
		case json.Number:
			s = t.String()
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func prefsMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}
