package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap 讓 errors.Is / errors.As 可以追溯原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
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

// WrapError 以預定義錯誤為模板包裝原始錯誤
func WrapError(template *CustomError, err error) *CustomError {
	return &CustomError{
		Code:    template.Code,
		Message: template.Message,
		Status:  template.Status,
		Err:     err,
	}
}

// NewDatabaseError 創建資料庫錯誤
func NewDatabaseError(message string, err error) *CustomError {
	return NewError(ErrCodeDatabaseError, message, http.StatusInternalServerError, err)
}

// ValidationError 表示驗證錯誤
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsErrorCode 檢查錯誤是否帶有指定錯誤代碼
func IsErrorCode(err error, code string) bool {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeRequestTimeout  = "REQUEST_TIMEOUT"   // 408
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeDatabaseError      = "DATABASE_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504

	// 業務錯誤代碼
	ErrCodePlanNotFound   = "PLAN_NOT_FOUND"
	ErrCodeDayNotFound    = "DAY_NOT_FOUND"
	ErrCodeUserNotFound   = "USER_NOT_FOUND"
	ErrCodeAIUnavailable  = "AI_UNAVAILABLE"
	ErrCodeUnparseableAI  = "UNPARSEABLE_AI_RESPONSE"
	ErrCodeCacheFull      = "CACHE_FULL"
	ErrCodeCacheDisabled  = "CACHE_DISABLED"
	ErrCodeCacheMiss      = "CACHE_MISS"
	ErrCodeNothingPending = "NOTHING_PENDING"
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrRequestTimeout  = NewError(ErrCodeRequestTimeout, "請求超時", http.StatusRequestTimeout, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "網關超時", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	// NotFound 類錯誤不自動重試；AI 類錯誤視為該輪終止
	ErrPlanNotFound          = NewError(ErrCodePlanNotFound, "找不到使用者的餐食計畫", http.StatusNotFound, nil)
	ErrDayNotFound           = NewError(ErrCodeDayNotFound, "計畫中找不到指定的日期", http.StatusNotFound, nil)
	ErrUserNotFound          = NewError(ErrCodeUserNotFound, "找不到使用者", http.StatusNotFound, nil)
	ErrAIUnavailable         = NewError(ErrCodeAIUnavailable, "AI 服務不可用", http.StatusServiceUnavailable, nil)
	ErrUnparseableAIResponse = NewError(ErrCodeUnparseableAI, "AI 回應無法解析", http.StatusBadGateway, nil)
	ErrCacheFull             = NewError(ErrCodeCacheFull, "緩存已滿", http.StatusServiceUnavailable, nil)
	ErrCacheDisabled         = NewError(ErrCodeCacheDisabled, "緩存已禁用", http.StatusServiceUnavailable, nil)
	ErrCacheMiss             = NewError(ErrCodeCacheMiss, "快取未命中", http.StatusNotFound, nil)
	ErrNothingPending        = NewError(ErrCodeNothingPending, "目前沒有待確認的替換建議", http.StatusConflict, nil)
)
