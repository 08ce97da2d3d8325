package handler

import (
	"errors"
	"net/http"

	"github.com/Chinu7077/Talk-to-Chinu/internal/model"
	"github.com/Chinu7077/Talk-to-Chinu/internal/service"
	"github.com/Chinu7077/Talk-to-Chinu/internal/storage"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService    *service.ChatService
	sessionService *service.SessionService
}

func NewChatHandler(chatService *service.ChatService, sessionService *service.SessionService) *ChatHandler {
	return &ChatHandler{
		chatService:    chatService,
		sessionService: sessionService,
	}
}

func (h *ChatHandler) Send(c *gin.Context) {
	var req model.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.chatService.Send(c.Request.Context(), req)
	if err != nil {
		c.JSON(sendStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func sendStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrMissingAPIKey):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrOutOfCredits):
		return http.StatusTooManyRequests
	case errors.Is(err, storage.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	session := h.sessionService.CreateSession()
	c.JSON(http.StatusOK, session)
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	session, err := h.sessionService.GetSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *ChatHandler) GetSessionList(c *gin.Context) {
	sessions := h.sessionService.ListSessions()

	summaries := make([]model.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, model.SessionResponse{
			SessionID:    session.ID,
			Title:        session.Title,
			CreatedAt:    session.CreatedAt,
			UpdatedAt:    session.UpdatedAt,
			MessageCount: len(session.Messages),
		})
	}

	c.JSON(http.StatusOK, gin.H{"sessions": summaries})
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	if err := h.sessionService.DeleteSession(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
}

// ClearSession empties a session's messages while keeping the record.
func (h *ChatHandler) ClearSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	if _, err := h.sessionService.GetSession(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	h.sessionService.UpdateSessionMessages(sessionID, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Chat cleared"})
}

func (h *ChatHandler) SetCurrentSession(c *gin.Context) {
	var req model.SetCurrentSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sessionService.SetCurrentSession(req.SessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Current session updated"})
}

func (h *ChatHandler) GetCurrentSession(c *gin.Context) {
	session := h.sessionService.GetCurrentSession()
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"session": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *ChatHandler) SearchSessions(c *gin.Context) {
	query := c.Query("q")
	sessions := h.sessionService.SearchSessions(query)
	if sessions == nil {
		sessions = []*model.Session{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *ChatHandler) ExportSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	format := service.ExportFormat(c.DefaultQuery("format", "text"))

	session, err := h.sessionService.GetSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	result, err := service.ExportSession(session, format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (h *ChatHandler) SetAPIKey(c *gin.Context) {
	var req model.SetAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.chatService.SaveAPIKey(req.APIKey); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key saved"})
}
