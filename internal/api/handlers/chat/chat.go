package chat

import (
	"net/http"

	"nutriplan/internal/api/handlers"
	chatcore "nutriplan/internal/core/chat"
	"nutriplan/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 對話端點
type Handler struct {
	orchestrator *chatcore.Orchestrator
}

// NewHandler 建立對話端點
func NewHandler(orchestrator *chatcore.Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

// messageRequest 對話請求
// pending 由前一輪回應原樣帶回，伺服器端另有會話內副本作後備
type messageRequest struct {
	SessionID  string                       `json:"session_id"`
	UserID     string                       `json:"user_id" binding:"required"`
	Message    string                       `json:"message" binding:"required"`
	RecipeMode bool                         `json:"recipe_mode"`
	Pending    *chatcore.PendingReplacement `json:"pending,omitempty"`
}

// HandleMessage 處理一輪對話
func (h *Handler) HandleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "user_id and message are required",
		})
		return
	}
	if req.SessionID == "" {
		req.SessionID = common.GenerateUUID()
	}

	resp, err := h.orchestrator.HandleTurn(c.Request.Context(), chatcore.TurnRequest{
		SessionID:  req.SessionID,
		UserID:     req.UserID,
		Message:    req.Message,
		RecipeMode: req.RecipeMode,
		Pending:    req.Pending,
	})
	if err != nil {
		common.LogError("chat turn failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		handlers.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": req.SessionID,
		"response":   resp,
	})
}
