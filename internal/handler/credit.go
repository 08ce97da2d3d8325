package handler

import (
	"net/http"

	"github.com/Chinu7077/Talk-to-Chinu/internal/model"
	"github.com/Chinu7077/Talk-to-Chinu/internal/service"

	"github.com/gin-gonic/gin"
)

type CreditHandler struct {
	credits *service.CreditService
}

func NewCreditHandler(credits *service.CreditService) *CreditHandler {
	return &CreditHandler{credits: credits}
}

func (h *CreditHandler) GetCredits(c *gin.Context) {
	lastReset := h.credits.LastReset()

	resp := model.CreditResponse{
		Credits:          h.credits.Check(),
		DailyLimit:       h.credits.Limit(),
		TimeUntilResetMs: h.credits.TimeUntilReset().Milliseconds(),
		OutOfCredits:     h.credits.OutOfCredits(),
	}
	if !lastReset.IsZero() {
		resp.LastReset = &lastReset
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CreditHandler) ResetCredits(c *gin.Context) {
	h.credits.Reset()
	c.JSON(http.StatusOK, gin.H{"message": "Credits reset"})
}
