package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Gemini      GeminiConfig    `mapstructure:"gemini"`
	Nanonets    NanonetsConfig  `mapstructure:"nanonets"`
	Recipes     RecipesConfig   `mapstructure:"recipes"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Image       ImageConfig     `mapstructure:"image"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
	LogFile     string          `mapstructure:"log_file"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// GeminiConfig 生成式模型設定
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	// Backend: rest（resty 直連 REST API）或 sdk（google.golang.org/genai）
	Backend     string   `mapstructure:"backend"`
	APIVersions []string `mapstructure:"api_versions"`
	// FallbackModels 格式為 "version/model"，依序嘗試
	FallbackModels  []string      `mapstructure:"fallback_models"`
	Temperature     float64       `mapstructure:"temperature"`
	TopP            float64       `mapstructure:"top_p"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Parallel        bool          `mapstructure:"parallel"`
	MaxParallel     int           `mapstructure:"max_parallel"`
}

// NanonetsConfig OCR 服務設定
type NanonetsConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	ModelID        string        `mapstructure:"model_id"`
	BaseURL        string        `mapstructure:"base_url"`
	AppendQuantity bool          `mapstructure:"append_quantity"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// RecipesConfig 食譜數量限制
type RecipesConfig struct {
	DefaultMax int `mapstructure:"default_max"`
	MaxLimit   int `mapstructure:"max_limit"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
}

// DefaultFallbackModels 已知可用的 (version, model) 組合，依優先順序
var DefaultFallbackModels = []string{
	"v1/gemini-2.5-flash",
	"v1/gemini-2.5-pro",
	"v1/gemini-2.0-flash",
	"v1/gemini-2.0-flash-001",
	"v1/gemini-1.5-flash-001",
	"v1/gemini-1.5-pro-001",
	"v1beta/gemini-2.5-flash",
	"v1beta/gemini-2.5-pro",
	"v1beta/gemini-1.5-flash",
	"v1beta/gemini-1.5-pro",
	"v1beta/gemini-1.5-flash-latest",
	"v1beta/gemini-1.5-pro-latest",
}

// LoadConfig 載入設定（環境變數 + 可選的 .env）
func LoadConfig() (*Config, error) {
	return Load(".")
}

// Load 從指定目錄讀取 .env 後載入設定；已存在的環境變數優先
func Load(dir string) (*Config, error) {
	// 讀取 .env 到環境變數，不覆蓋既有值
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := viper.New()

	// 設定預設值
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	bindEnv(v, "server.port", "PORT")
	bindEnv(v, "gemini.api_key", "GOOGLE_API_KEY", "GEMINI_API_KEY")
	bindEnv(v, "gemini.backend", "GEMINI_BACKEND")
	bindEnv(v, "gemini.fallback_models", "GEMINI_FALLBACK_MODELS")
	bindEnv(v, "gemini.parallel", "GEMINI_PARALLEL")
	bindEnv(v, "nanonets.api_key", "NANONETS_API_KEY")
	bindEnv(v, "nanonets.model_id", "NANONETS_MODEL_ID")
	bindEnv(v, "nanonets.append_quantity", "NANONETS_APPEND_QUANTITY")
	bindEnv(v, "rate_limit.enabled", "RATE_LIMIT_ENABLED")
	bindEnv(v, "rate_limit.requests", "RATE_LIMIT_REQUESTS")
	bindEnv(v, "rate_limit.window", "RATE_LIMIT_WINDOW")
	bindEnv(v, "dedup_window", "DEDUP_WINDOW")
	bindEnv(v, "log_level", "LOG_LEVEL")
	bindEnv(v, "log_file", "LOG_FILE")

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func bindEnv(v *viper.Viper, key string, envs ...string) {
	_ = v.BindEnv(append([]string{key}, envs...)...)
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "chefito-worker")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 15<<20)

	// Gemini 設定
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.backend", "rest")
	v.SetDefault("gemini.api_versions", []string{"v1", "v1beta"})
	v.SetDefault("gemini.fallback_models", DefaultFallbackModels)
	v.SetDefault("gemini.temperature", 0.3)
	v.SetDefault("gemini.top_p", 0.85)
	v.SetDefault("gemini.max_output_tokens", 4096)
	v.SetDefault("gemini.timeout", "0s")
	v.SetDefault("gemini.parallel", false)
	v.SetDefault("gemini.max_parallel", 4)

	// Nanonets 設定
	v.SetDefault("nanonets.base_url", "https://app.nanonets.com")
	v.SetDefault("nanonets.append_quantity", false)
	v.SetDefault("nanonets.timeout", "0s")

	// 食譜數量
	v.SetDefault("recipes.default_max", 3)
	v.SetDefault("recipes.max_limit", 10)

	// 限流設定
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	// 圖片設定
	v.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB

	// 0 表示關閉去重
	v.SetDefault("dedup_window", "0s")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.Gemini.Backend {
	case "rest", "sdk":
	default:
		return fmt.Errorf("unknown gemini backend %q", config.Gemini.Backend)
	}
	if len(config.Gemini.APIVersions) == 0 {
		return fmt.Errorf("at least one gemini api version is required")
	}
	for _, fm := range config.Gemini.FallbackModels {
		if !strings.Contains(fm, "/") {
			return fmt.Errorf("invalid fallback model %q, expected version/model", fm)
		}
	}
	if config.Gemini.Parallel && config.Gemini.MaxParallel <= 0 {
		return fmt.Errorf("invalid gemini max parallel")
	}

	if config.Recipes.MaxLimit <= 0 {
		return fmt.Errorf("invalid recipes max limit")
	}
	if config.Recipes.DefaultMax <= 0 || config.Recipes.DefaultMax > config.Recipes.MaxLimit {
		return fmt.Errorf("recipes default max must be within [1, %d]", config.Recipes.MaxLimit)
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit settings")
	}

	if config.Image.MaxSizeBytes <= 0 {
		return fmt.Errorf("invalid image max size")
	}

	return nil
}
