package health

import (
	"net/http"
	"runtime"
	"time"

	"chefito-worker/internal/infrastructure/config"
	"chefito-worker/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
}

// ReadinessResponse 就緒檢查響應
type ReadinessResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Backend   string          `json:"backend"`
	Upstreams map[string]bool `json:"upstreams"`
}

// Handler 健康檢查處理器
type Handler struct {
	config  *config.Config
	started time.Time
}

// NewHandler 創建健康檢查處理器
func NewHandler(cfg *config.Config) *Handler {
	return &Handler{config: cfg, started: time.Now()}
}

// HealthCheck GET / 與 GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{OK: true, Service: common.ServiceName})
}

// ReadinessCheck 回報上游憑證是否已設定；服務本身無狀態，缺憑證不影響就緒
func (h *Handler) ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, ReadinessResponse{
		Status:  "ready",
		Version: h.config.App.Version,
		Backend: h.config.Gemini.Backend,
		Upstreams: map[string]bool{
			"gemini":   h.config.Gemini.APIKey != "",
			"nanonets": h.config.Nanonets.APIKey != "" && h.config.Nanonets.ModelID != "",
		},
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "alive",
		"uptime":     time.Since(h.started).String(),
		"goroutines": runtime.NumGoroutine(),
	})
}
