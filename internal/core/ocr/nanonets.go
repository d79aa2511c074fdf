package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"chefito-worker/internal/infrastructure/config"
	"chefito-worker/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ParseRequest OCR 解析請求，imageUrl 與 imageBase64 擇一
type ParseRequest struct {
	ImageURL    string `json:"imageUrl"`
	ImageBase64 string `json:"imageBase64"`
	ModelID     string `json:"modelId"`
}

// ParseResult OCR 解析結果
type ParseResult struct {
	Ingredients []string        `json:"ingredients"`
	Raw         json.RawMessage `json:"raw"`
	Count       int             `json:"count"`
}

// NanonetsClient Nanonets OCR 代理
type NanonetsClient struct {
	config       *config.NanonetsConfig
	maxSizeBytes int64
	client       *resty.Client
}

// NewNanonetsClient 創建 Nanonets 客戶端
func NewNanonetsClient(cfg *config.NanonetsConfig, imageCfg *config.ImageConfig) *NanonetsClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &NanonetsClient{
		config:       cfg,
		maxSizeBytes: imageCfg.MaxSizeBytes,
		client:       client,
	}
}

// Parse 呼叫 Nanonets 並從回應擷取食材
func (n *NanonetsClient) Parse(ctx context.Context, req ParseRequest) (*ParseResult, error) {
	imageURL := strings.TrimSpace(req.ImageURL)
	imageBase64 := strings.TrimSpace(req.ImageBase64)
	if imageURL == "" && imageBase64 == "" {
		return nil, common.NewValidationError("Provide imageUrl or imageBase64")
	}

	modelID := strings.TrimSpace(req.ModelID)
	if modelID == "" {
		modelID = n.config.ModelID
	}
	if n.config.APIKey == "" || modelID == "" {
		return nil, common.NewConfigurationError("Missing NANONETS_API_KEY or NANONETS_MODEL_ID")
	}

	r := n.client.R().
		SetContext(ctx).
		SetBasicAuth(n.config.APIKey, "").
		SetPathParam("modelId", modelID).
		SetQueryParam("async", "false")

	if imageURL != "" {
		r.SetHeader("Content-Type", "application/json").
			SetBody(map[string][]string{"urls": {imageURL}})
	} else {
		data, err := DecodeImageBase64(imageBase64, n.maxSizeBytes)
		if err != nil {
			return nil, common.NewValidationError(err.Error())
		}
		upload := SniffUpload(data)
		r.SetMultipartField("file", upload.FileName, upload.ContentType, bytes.NewReader(upload.Data))
		common.LogDebug("Nanonets multipart upload",
			zap.String("content_type", upload.ContentType),
			zap.Int("size", len(upload.Data)),
		)
	}

	start := time.Now()
	resp, err := r.Post("/api/v2/OCR/Model/{modelId}/LabelFile/")
	if err != nil {
		common.LogUpstreamCall("nanonets", modelID, time.Since(start), err)
		return nil, common.NewUpstreamError("Nanonets error", http.StatusBadGateway, err).
			WithDetail("status", http.StatusBadGateway).
			WithDetail("detail", err.Error())
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		upstreamErr := common.NewUpstreamError("Nanonets error", resp.StatusCode(), nil).
			WithDetail("status", resp.StatusCode()).
			WithDetail("detail", resp.String())
		common.LogUpstreamCall("nanonets", modelID, time.Since(start), upstreamErr)
		return nil, upstreamErr
	}
	common.LogUpstreamCall("nanonets", modelID, time.Since(start), nil)

	raw := resp.Body()
	if !gjson.ValidBytes(raw) {
		common.LogWarn("Nanonets returned non-JSON body", zap.Int("size", len(raw)))
		raw = []byte("{}")
	}

	ingredients := ExtractIngredients(raw, ExtractOptions{AppendQuantity: n.config.AppendQuantity})
	common.LogInfo("Nanonets response parsed",
		zap.Int("results", len(gjson.GetBytes(raw, "result").Array())),
		zap.Int("ingredients", len(ingredients)),
	)

	return &ParseResult{
		Ingredients: ingredients,
		Raw:         json.RawMessage(raw),
		Count:       len(ingredients),
	}, nil
}
