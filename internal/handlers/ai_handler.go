package handlers

import (
	"errors"
	"net/http"

	"go-dokan-pos/internal/ai"
	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type AskRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// --- POST: /api/ask ---
func (h *Handler) AskAI(c *gin.Context) {
	if h.Agent == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI assistant is not configured"})
		return
	}
	var req AskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	reply, err := h.Agent.Ask(c.Request.Context(), req.Message)
	if err != nil {
		respondAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// respondAIError keeps model failures apart from ledger failures.
func respondAIError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ai.ErrDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI assistant is not configured"})
	case apperr.Kind(err) != "":
		respondError(c, err)
	default:
		log.Warn().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("model call failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI service failed: " + err.Error()})
	}
}
