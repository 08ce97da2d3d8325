package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Chinu7077/Talk-to-Chinu/internal/ai"
	"github.com/Chinu7077/Talk-to-Chinu/internal/model"
	"github.com/Chinu7077/Talk-to-Chinu/internal/storage"
	"github.com/Chinu7077/Talk-to-Chinu/pkg/logger"

	"github.com/google/uuid"
)

// APIKeyStorageKey holds the user-saved provider key.
const APIKeyStorageKey = "gemini-api-key"

// ChatService runs the send-message flow: validate input, append the user
// message, spend a credit, call the provider, append the AI reply (or the
// fallback message when the call fails).
type ChatService struct {
	sessions      *SessionService
	credits       *CreditService
	provider      ai.Provider
	kv            storage.KV
	configuredKey string

	now func() time.Time
}

func NewChatService(sessions *SessionService, credits *CreditService, provider ai.Provider, kv storage.KV, configuredKey string) *ChatService {
	return &ChatService{
		sessions:      sessions,
		credits:       credits,
		provider:      provider,
		kv:            kv,
		configuredKey: configuredKey,
		now:           time.Now,
	}
}

// Send appends the user message and its AI reply to the target session.
//
// A credit is spent before the provider call, so a failed call still costs
// one; the provider's own 429 remains the source of truth for real quota and
// zeroes the local counter when observed. The AI reply is appended to the
// session id captured here, not to whatever session is current when the
// response arrives, so switching conversations mid-request cannot
// misattribute a reply.
func (s *ChatService) Send(ctx context.Context, req model.SendRequest) (*model.SendResponse, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	apiKey := s.resolveAPIKey(req.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	userMsg := model.Message{
		ID:        uuid.New().String(),
		Text:      text,
		IsUser:    true,
		Timestamp: s.now(),
	}

	var targetID string
	if req.SessionID != "" {
		if err := s.sessions.AppendMessageTo(req.SessionID, userMsg); err != nil {
			return nil, err
		}
		targetID = req.SessionID
	} else {
		targetID = s.sessions.AppendMessage(userMsg)
	}

	if !s.credits.Consume() {
		return nil, ErrOutOfCredits
	}

	reply, genErr := s.provider.Generate(ctx, apiKey, text)
	if genErr != nil {
		if errors.Is(genErr, ai.ErrQuotaExceeded) {
			s.credits.RecordExhausted()
		}
		logger.WithField("session", targetID).Errorf("AI request failed: %v", genErr)
		reply = ai.FallbackText
	}

	aiMsg := model.Message{
		ID:        uuid.New().String(),
		Text:      reply,
		IsUser:    false,
		Timestamp: s.now(),
	}

	// The session may have been deleted while the request was in flight;
	// the reply is dropped rather than attached to the wrong conversation.
	if err := s.sessions.AppendMessageTo(targetID, aiMsg); err != nil {
		logger.Warnf("Session %s gone before reply arrived, dropping it", targetID)
		return nil, err
	}

	resp := &model.SendResponse{
		SessionID:   targetID,
		UserMessage: userMsg,
		AIMessage:   aiMsg,
		Credits:     s.credits.Check(),
	}
	if genErr != nil {
		resp.Error = userFacingError(genErr)
	}
	return resp, nil
}

// SaveAPIKey persists a user-supplied provider key.
func (s *ChatService) SaveAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrMissingAPIKey
	}
	return s.kv.Set(APIKeyStorageKey, key)
}

func (s *ChatService) resolveAPIKey(override string) string {
	if override != "" {
		return override
	}
	if saved, ok, err := s.kv.Get(APIKeyStorageKey); err == nil && ok && saved != "" {
		return saved
	}
	return s.configuredKey
}

func userFacingError(err error) string {
	switch {
	case errors.Is(err, ai.ErrQuotaExceeded):
		return "API quota exceeded. Credits are used up for today."
	case errors.Is(err, ai.ErrInvalidAPIKey):
		return "Invalid API key. Please check your key and try again."
	case errors.Is(err, ai.ErrAccessDenied):
		return "API access denied. Please verify your key's permissions."
	default:
		return "Failed to get AI response. " + err.Error()
	}
}
