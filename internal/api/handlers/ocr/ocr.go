package ocr

import (
	"context"
	"net/http"
	"strings"

	ocrService "chefito-worker/internal/core/ocr"
	"chefito-worker/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Parser OCR 代理
type Parser interface {
	Parse(ctx context.Context, req ocrService.ParseRequest) (*ocrService.ParseResult, error)
}

// Handler OCR 處理程序
type Handler struct {
	parser Parser
}

// NewHandler 創建 OCR 處理程序
func NewHandler(parser Parser) *Handler {
	return &Handler{parser: parser}
}

// HandleParse POST /nanonets/parse
func (h *Handler) HandleParse(c *gin.Context) {
	requestID := common.RequestID(c)

	raw, err := c.GetRawData()
	if err != nil {
		common.WriteErrorResponse(c, common.NewValidationError("Invalid JSON").
			WithDetail("detail", err.Error()))
		return
	}

	var body map[string]interface{}
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := common.ParseJSONBytes(raw, &body); err != nil {
			common.LogWarn("請求格式無效",
				zap.Error(err),
				zap.String("request_id", requestID),
			)
			common.WriteErrorResponse(c, common.NewValidationError("Invalid JSON").
				WithDetail("detail", err.Error()))
			return
		}
	}

	req := ocrService.ParseRequest{
		ImageURL:    stringField(body, "imageUrl"),
		ImageBase64: stringField(body, "imageBase64"),
		ModelID:     stringField(body, "modelId"),
	}

	common.LogInfo("開始處理 OCR 請求",
		zap.String("request_id", requestID),
		zap.String("client_ip", c.ClientIP()),
		zap.Bool("has_url", req.ImageURL != ""),
		zap.Int("base64_length", len(req.ImageBase64)),
	)

	result, err := h.parser.Parse(c.Request.Context(), req)
	if err != nil {
		common.LogError("OCR 解析失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		common.WriteErrorResponse(c, err)
		return
	}

	common.LogInfo("OCR 解析完成",
		zap.String("request_id", requestID),
		zap.Int("count", result.Count),
	)
	c.JSON(http.StatusOK, result)
}

// stringField 非字串欄位視為缺少
func stringField(body map[string]interface{}, key string) string {
	s, _ := body[key].(string)
	return strings.TrimSpace(s)
}
