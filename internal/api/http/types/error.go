// Package types HTTP 响应结构
package types

// ErrorResponse 统一错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
}

// 错误码
const (
	ErrInvalidArgument = "INVALID_ARGUMENT"
	ErrUnauthenticated = "UNAUTHENTICATED" // 没有会话
	ErrNotFound        = "NOT_FOUND"
	ErrBusy            = "TX_IN_PROGRESS"
	ErrConflict        = "CONFLICT"

	ErrNoWallet     = "NO_WALLET"
	ErrWrongNetwork = "WRONG_NETWORK"
	ErrNoAccounts   = "NO_ACCOUNTS"
	ErrUserRejected = "USER_REJECTED"
	ErrUnsupported  = "UNSUPPORTED" // 钱包不支持该操作

	ErrWalletFailure = "WALLET_FAILURE"
	ErrInternal      = "INTERNAL"
)

// NewErrorResponse 创建错误响应
func NewErrorResponse(code, message string, details interface{}) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// WithRequestID 添加请求ID
func (e *ErrorResponse) WithRequestID(requestID string) *ErrorResponse {
	e.Error.RequestID = requestID
	return e
}
