package model

type SendRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
	APIKey    string `json:"api_key"`
}

type SetCurrentSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type SetAPIKeyRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}
