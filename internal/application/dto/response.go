package dto

import (
	"time"

	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/errors"
)

// APIResponse 通用 API 响应结构
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO 错误信息 DTO
type ErrorDTO struct {
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// SuccessResponse 创建成功响应
func SuccessResponse(data interface{}, traceID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse 创建错误响应
func ErrorResponse(err error, traceID string) *APIResponse {
	var errorDTO *ErrorDTO

	if cleErr, ok := errors.AsCLEError(err); ok {
		errorDTO = &ErrorDTO{
			Code:        string(cleErr.Code()),
			Message:     cleErr.Error(),
			Description: cleErr.Description(),
			Metadata:    cleErr.Metadata(),
		}
	} else {
		errorDTO = &ErrorDTO{
			Code:    string(constants.ErrCodeServerError),
			Message: "Internal server error",
		}
	}

	return &APIResponse{
		Success:   false,
		Error:     errorDTO,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// NotFoundResponse 创建资源未找到响应
func NotFoundResponse(resource string, traceID string) *APIResponse {
	return &APIResponse{
		Success: false,
		Error: &ErrorDTO{
			Code:        string(constants.ErrCodeLicenseNotFound),
			Message:     "Resource not found",
			Description: resource + " not found",
		},
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// RateLimitExceededResponse 创建速率限制响应
func RateLimitExceededResponse(resetAt time.Time, traceID string) *APIResponse {
	return &APIResponse{
		Success: false,
		Error: &ErrorDTO{
			Code:        string(constants.ErrCodeTemporarilyUnavailable),
			Message:     "Rate limit exceeded",
			Description: "Too many requests, please try again later",
			Metadata: map[string]interface{}{
				"reset_at": resetAt.UTC().Format(time.RFC3339),
			},
		},
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// ServiceUnavailableResponse 创建服务不可用响应
func ServiceUnavailableResponse(message string, traceID string) *APIResponse {
	return &APIResponse{
		Success: false,
		Error: &ErrorDTO{
			Code:        string(constants.ErrCodeTemporarilyUnavailable),
			Message:     "Service temporarily unavailable",
			Description: message,
		},
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}
