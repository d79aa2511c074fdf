package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceName 服務名稱，用於健康檢查與日誌
const ServiceName = "chefito-worker"

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string                 // 錯誤代碼
	Message string                 // 錯誤信息
	Err     error                  // 原始錯誤
	Status  int                    // HTTP 狀態碼
	Details map[string]interface{} // 附加在響應中的欄位
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// WithDetail 附加詳細欄位，回傳同一個錯誤以便串接
func (e *CustomError) WithDetail(key string, value interface{}) *CustomError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeMissingCredentials = "MISSING_CREDENTIALS" // 500
	ErrCodeUpstream           = "UPSTREAM_ERROR"      // 透傳上游狀態
	ErrCodeUpstreamExhausted  = "UPSTREAM_EXHAUSTED"  // 502
	ErrCodeInvalidModelJSON   = "INVALID_MODEL_JSON"  // 502
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504
)

// NewValidationError 輸入驗證錯誤 (400)，訊息直接回給呼叫端
func NewValidationError(message string) *CustomError {
	return NewError(ErrCodeInvalidRequest, message, http.StatusBadRequest, nil)
}

// NewConfigurationError 缺少上游憑證 (500)
func NewConfigurationError(message string) *CustomError {
	return NewError(ErrCodeMissingCredentials, message, http.StatusInternalServerError, nil)
}

// NewUpstreamError 上游回應非 2xx；status 為 0 時使用 502
func NewUpstreamError(message string, status int, err error) *CustomError {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return NewError(ErrCodeUpstream, message, status, err)
}

// NewParseError 模型輸出無法還原為 JSON (502)
func NewParseError(message string, err error) *CustomError {
	return NewError(ErrCodeInvalidModelJSON, message, http.StatusBadGateway, err)
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ce *CustomError
	return errors.As(err, &ce) && ce.Code == ErrCodeInvalidRequest
}

// AsCustomError 取出錯誤鏈中的 CustomError
func AsCustomError(err error) (*CustomError, bool) {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Truncate 依 rune 截斷字串
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
