package types

// SuccessResponse 统一成功响应格式
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"requestId,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *SuccessResponse {
	return &SuccessResponse{Data: data}
}

// WithRequestID 添加请求ID
func (r *SuccessResponse) WithRequestID(requestID string) *SuccessResponse {
	r.RequestID = requestID
	return r
}

// ActionAccepted POST /api/v1/actions 的受理结果
type ActionAccepted struct {
	Kind   string `json:"kind"`
	Status string `json:"status"` // accepted
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}
