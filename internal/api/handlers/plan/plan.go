package plan

import (
	"encoding/json"
	"net/http"
	"strings"

	"nutriplan/internal/api/handlers"
	"nutriplan/internal/core/mealplan"
	"nutriplan/internal/core/profile"
	"nutriplan/internal/core/suggestion"
	"nutriplan/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// Handler 計畫端點
type Handler struct {
	plans     mealplan.Store
	profiles  profile.Store
	engine    *suggestion.Engine
	mutations *mealplan.MutationService
}

// NewHandler 建立計畫端點
func NewHandler(plans mealplan.Store, profiles profile.Store, engine *suggestion.Engine, mutations *mealplan.MutationService) *Handler {
	return &Handler{
		plans:     plans,
		profiles:  profiles,
		engine:    engine,
		mutations: mutations,
	}
}

// GetPlan 取得使用者最新的週計畫
func (h *Handler) GetPlan(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "user_id is required",
		})
		return
	}

	plan, err := h.plans.LatestByUser(c.Request.Context(), userID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	days, err := plan.DayPlans()
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plan_id":    plan.ID,
		"user_id":    plan.UserID,
		"days":       days,
		"updated_at": plan.UpdatedAt,
	})
}

// suggestRequest 替換建議請求
type suggestRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Day      string `json:"day" binding:"required"`
	MealType string `json:"meal_type" binding:"required"`
	Reason   string `json:"reason"`
}

// SuggestReplacement 針對指定的 (日期, 餐別) 產生替換建議
func (h *Handler) SuggestReplacement(c *gin.Context) {
	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "user_id, day and meal_type are required",
		})
		return
	}
	mealType := strings.ToLower(strings.TrimSpace(req.MealType))
	if !mealplan.IsValidMealType(mealType) {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "meal_type must be breakfast, lunch or dinner",
		})
		return
	}

	ctx := c.Request.Context()
	plan, err := h.plans.LatestByUser(ctx, req.UserID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	days, err := plan.DayPlans()
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	entry := mealplan.FindDay(days, req.Day)
	if entry == nil {
		handlers.RespondError(c, common.ErrDayNotFound)
		return
	}
	currentMeal := *entry.Slot(mealType)

	user, err := h.profiles.ByID(ctx, req.UserID)
	if err != nil && !common.IsErrorCode(err, common.ErrCodeUserNotFound) {
		handlers.RespondError(c, err)
		return
	}

	result, err := h.engine.Suggest(ctx, req.UserID, currentMeal, profile.BuildContext(user), req.Reason)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"day":          strings.ToLower(strings.TrimSpace(req.Day)),
		"meal_type":    mealType,
		"current_meal": currentMeal,
		"result":       result,
	})
}

// confirmRequest 確認替換請求
// candidate 接受寬鬆欄位寫法（title、巢狀 macros、帶單位的數值）
type confirmRequest struct {
	UserID    string          `json:"user_id" binding:"required"`
	Day       string          `json:"day" binding:"required"`
	MealType  string          `json:"meal_type" binding:"required"`
	Candidate json.RawMessage `json:"candidate" binding:"required"`
}

// ConfirmReplacement 套用選定的候選
func (h *Handler) ConfirmReplacement(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "user_id, day, meal_type and candidate are required",
		})
		return
	}

	var loose mealplan.LooseCandidate
	if err := json.Unmarshal(req.Candidate, &loose); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "candidate must be a JSON object",
		})
		return
	}

	applied, err := h.mutations.Apply(c.Request.Context(), req.UserID, req.Day, req.MealType, loose.Normalize())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, applied)
}
