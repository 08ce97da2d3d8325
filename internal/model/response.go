package model

import "time"

type SendResponse struct {
	SessionID   string  `json:"session_id"`
	UserMessage Message `json:"user_message"`
	AIMessage   Message `json:"ai_message"`
	Credits     int     `json:"credits"`
	Error       string  `json:"error,omitempty"`
}

type SessionResponse struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

type CreditResponse struct {
	Credits          int        `json:"credits"`
	DailyLimit       int        `json:"daily_limit"`
	LastReset        *time.Time `json:"last_reset,omitempty"`
	TimeUntilResetMs int64      `json:"time_until_reset_ms"`
	OutOfCredits     bool       `json:"out_of_credits"`
}
