package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"nutriplan/internal/core/mealplan"
	"nutriplan/internal/core/profile"
	"nutriplan/internal/core/suggestion"
	"nutriplan/internal/pkg/common"

	"go.uber.org/zap"
)

// Suggester 建議引擎介面
type Suggester interface {
	Suggest(ctx context.Context, userID string, currentMeal mealplan.MealSlot, pref profile.PreferenceContext, reason string) (*suggestion.Result, error)
}

// Applier 計畫寫入介面
type Applier interface {
	Apply(ctx context.Context, userID, day, mealType string, cand mealplan.Candidate) (*mealplan.ApplyResult, error)
}

// RecipeGenerator 食譜問答用的生成後端
type RecipeGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PendingReplacement 待確認的替換建議
// 隨回應帶給呼叫端，下一輪由呼叫端原樣帶回；伺服器端同時留一份會話內副本
type PendingReplacement struct {
	Day        string               `json:"day"`
	MealType   string               `json:"meal_type"`
	Candidates []mealplan.Candidate `json:"candidates"`
}

// TurnRequest 一輪對話的輸入
type TurnRequest struct {
	SessionID  string
	UserID     string
	Message    string
	RecipeMode bool
	Pending    *PendingReplacement
}

// TurnResponse 一輪對話的輸出
type TurnResponse struct {
	ResponseText string                `json:"response_text"`
	QuickReplies []string              `json:"quick_replies,omitempty"`
	Pending      *PendingReplacement   `json:"pending,omitempty"`
	Applied      *mealplan.ApplyResult `json:"applied,omitempty"`
}

// Orchestrator 每輪對話的狀態機：分類 → 解析目標 → 建議或套用 → 組回覆
type Orchestrator struct {
	classifier *Classifier
	resolver   *TargetResolver
	suggester  Suggester
	applier    Applier
	recipes    RecipeGenerator
	plans      mealplan.Store
	profiles   profile.Store
	sessions   SessionStore

	// 會話內待確認狀態的伺服器端副本，呼叫端沒帶回 pending 時的後備
	pending sync.Map
}

// NewOrchestrator 建立對話協調器
func NewOrchestrator(
	classifier *Classifier,
	resolver *TargetResolver,
	suggester Suggester,
	applier Applier,
	recipes RecipeGenerator,
	plans mealplan.Store,
	profiles profile.Store,
	sessions SessionStore,
) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		resolver:   resolver,
		suggester:  suggester,
		applier:    applier,
		recipes:    recipes,
		plans:      plans,
		profiles:   profiles,
		sessions:   sessions,
	}
}

// HandleTurn 處理一輪對話
// 套用失敗以錯誤回傳；建議類的 AI 失敗轉成可讀回覆並記錄原因
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	pending := o.resolvePending(req)
	intent := o.classifier.Classify(req.Message, SessionState{
		HasPending: pending != nil,
		RecipeMode: req.RecipeMode,
	})

	common.LogInfo("chat turn classified",
		zap.String("session_id", req.SessionID),
		zap.String("intent", string(intent.Kind)),
	)

	var (
		resp *TurnResponse
		err  error
	)
	switch intent.Kind {
	case IntentConfirmation:
		resp, err = o.handleConfirmation(ctx, req, pending, intent.CandidateIndex)
	case IntentReplacement, IntentModification:
		resp, err = o.handleReplacement(ctx, req, false)
	case IntentDirectReplacement:
		resp, err = o.handleReplacement(ctx, req, true)
	case IntentPlanQuery:
		resp, err = o.handlePlanQuery(ctx, req)
	case IntentRecipeRequest:
		resp, err = o.handleRecipe(ctx, req)
	default:
		resp = &TurnResponse{
			ResponseText: "I can help you view your meal plan, swap a meal you don't like, or walk you through a recipe. What would you like to do?",
			QuickReplies: []string{"Show my meal plan", "Change my dinner"},
		}
	}
	if err != nil {
		return nil, err
	}

	// 只有產生新建議時覆寫伺服器端副本；無關的回合（查詢、閒聊）不得清掉它
	if resp.Pending != nil {
		o.pending.Store(req.SessionID, resp.Pending)
	}
	o.appendHistory(ctx, req, resp)
	return resp, nil
}

// resolvePending 呼叫端帶回的 pending 優先，否則用伺服器端副本
func (o *Orchestrator) resolvePending(req TurnRequest) *PendingReplacement {
	if req.Pending != nil && len(req.Pending.Candidates) > 0 {
		return req.Pending
	}
	if value, ok := o.pending.Load(req.SessionID); ok {
		if stored, ok := value.(*PendingReplacement); ok {
			return stored
		}
	}
	return nil
}

// handleConfirmation 套用先前建議裡指定序號的候選，不重新解析本輪文字
// 套用成功才消耗伺服器端副本
func (o *Orchestrator) handleConfirmation(ctx context.Context, req TurnRequest, pending *PendingReplacement, index int) (*TurnResponse, error) {
	if pending == nil {
		return nil, common.ErrNothingPending
	}
	if index < 0 || index >= len(pending.Candidates) {
		return &TurnResponse{
			ResponseText: fmt.Sprintf("Please pick an option between 1 and %d.", len(pending.Candidates)),
			Pending:      pending,
		}, nil
	}

	applied, err := o.applier.Apply(ctx, req.UserID, pending.Day, pending.MealType, pending.Candidates[index])
	if err != nil {
		return nil, err
	}
	o.pending.Delete(req.SessionID)
	return &TurnResponse{
		ResponseText: applySummary(applied),
		Applied:      applied,
	}, nil
}

// handleReplacement 解析目標後產生建議；direct 為真時直接套用第一個候選
func (o *Orchestrator) handleReplacement(ctx context.Context, req TurnRequest, direct bool) (*TurnResponse, error) {
	plan, err := o.plans.LatestByUser(ctx, req.UserID)
	if err != nil {
		if common.IsErrorCode(err, common.ErrCodePlanNotFound) {
			return &TurnResponse{
				ResponseText: "I couldn't find your meal plan. Once a weekly plan is set up I can swap meals for you.",
			}, nil
		}
		return nil, err
	}
	days, err := plan.DayPlans()
	if err != nil {
		return nil, err
	}

	target, ok := o.resolver.Resolve(req.Message, days)
	if !ok {
		if day := ExtractDay(req.Message); day != "" && mealplan.FindDay(days, day) == nil {
			return &TurnResponse{
				ResponseText: fmt.Sprintf("I couldn't find %s in your current meal plan.", titleDay(day)),
			}, nil
		}
		return &TurnResponse{
			ResponseText: "I couldn't work out which meal you mean. Try something like \"change my Tuesday dinner\".",
		}, nil
	}

	entry := mealplan.FindDay(days, target.Day)
	currentMeal := *entry.Slot(target.MealType)

	user, err := o.profiles.ByID(ctx, req.UserID)
	if err != nil && !common.IsErrorCode(err, common.ErrCodeUserNotFound) {
		return nil, err
	}
	pref := profile.BuildContext(user)

	result, err := o.suggester.Suggest(ctx, req.UserID, currentMeal, pref, req.Message)
	if err != nil {
		// 建議失敗轉成可讀回覆，真正原因記錄起來
		common.LogError("suggestion engine failed",
			zap.String("session_id", req.SessionID),
			zap.String("day", target.Day),
			zap.String("meal_type", target.MealType),
			zap.Error(err),
		)
		return &TurnResponse{
			ResponseText: "I'm having trouble coming up with suggestions right now. Please try again in a moment.",
		}, nil
	}
	if len(result.Replacements) == 0 {
		return &TurnResponse{
			ResponseText: "I couldn't find a good replacement for that meal. Could you tell me more about what you'd prefer?",
		}, nil
	}

	if direct {
		applied, err := o.applier.Apply(ctx, req.UserID, target.Day, target.MealType, result.Replacements[0])
		if err != nil {
			return nil, err
		}
		// 直接套用讓先前留下的建議失效
		o.pending.Delete(req.SessionID)
		return &TurnResponse{
			ResponseText: applySummary(applied),
			Applied:      applied,
		}, nil
	}

	pending := &PendingReplacement{
		Day:        target.Day,
		MealType:   target.MealType,
		Candidates: result.Replacements,
	}
	return &TurnResponse{
		ResponseText: suggestionSummary(target, currentMeal, result),
		QuickReplies: optionReplies(result.Replacements),
		Pending:      pending,
	}, nil
}

// handlePlanQuery 讀取並排版目前的週計畫
func (o *Orchestrator) handlePlanQuery(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	plan, err := o.plans.LatestByUser(ctx, req.UserID)
	if err != nil {
		if common.IsErrorCode(err, common.ErrCodePlanNotFound) {
			return &TurnResponse{
				ResponseText: "I couldn't find your meal plan yet.",
			}, nil
		}
		return nil, err
	}
	days, err := plan.DayPlans()
	if err != nil {
		return nil, err
	}

	day := ExtractDay(strings.ToLower(req.Message))
	var b strings.Builder
	if day != "" {
		entry := mealplan.FindDay(days, day)
		if entry == nil {
			return &TurnResponse{
				ResponseText: fmt.Sprintf("Your plan has no entry for %s.", day),
			}, nil
		}
		writeDay(&b, entry)
	} else {
		b.WriteString("Here's your weekly plan:\n")
		for i := range days {
			writeDay(&b, &days[i])
		}
	}
	return &TurnResponse{
		ResponseText: strings.TrimRight(b.String(), "\n"),
		QuickReplies: []string{"Change my dinner", "Change my lunch"},
	}, nil
}

// handleRecipe 詢問作法走一次性的生成呼叫，不動計畫
// 帶上最近的對話紀錄，讓「那道菜怎麼做」這類接續提問有上下文
func (o *Orchestrator) handleRecipe(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	var b strings.Builder
	b.WriteString("Give concise cooking instructions for the following request. Use short numbered steps and include an ingredient list.\n")
	if o.sessions != nil {
		if history, err := o.sessions.Recent(ctx, req.SessionID, 10); err == nil && len(history) > 0 {
			b.WriteString("\nRecent conversation:\n")
			for _, msg := range history {
				fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
			}
		}
	}
	fmt.Fprintf(&b, "\nRequest: %s\n", strings.TrimSpace(req.Message))

	text, err := o.recipes.Generate(ctx, b.String())
	if err != nil {
		common.LogError("recipe generation failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		return &TurnResponse{
			ResponseText: "I'm having trouble fetching that recipe right now. Please try again in a moment.",
		}, nil
	}
	return &TurnResponse{ResponseText: strings.TrimSpace(text)}, nil
}

// appendHistory 會話紀錄僅追加；寫入失敗不影響回覆
func (o *Orchestrator) appendHistory(ctx context.Context, req TurnRequest, resp *TurnResponse) {
	if o.sessions == nil {
		return
	}
	userMsg := &ChatMessage{SessionID: req.SessionID, UserID: req.UserID, Role: RoleUser, Content: req.Message}
	if err := o.sessions.Append(ctx, userMsg); err != nil {
		common.LogWarn("failed to append user message", zap.Error(err))
	}
	botMsg := &ChatMessage{SessionID: req.SessionID, UserID: req.UserID, Role: RoleAssistant, Content: resp.ResponseText}
	if err := o.sessions.Append(ctx, botMsg); err != nil {
		common.LogWarn("failed to append assistant message", zap.Error(err))
	}
}

func writeDay(b *strings.Builder, entry *mealplan.DayPlan) {
	fmt.Fprintf(b, "%s:\n", titleDay(entry.Day))
	fmt.Fprintf(b, "  Breakfast: %s (%.0f kcal)\n", entry.Breakfast.Dish, entry.Breakfast.Calories)
	fmt.Fprintf(b, "  Lunch: %s (%.0f kcal)\n", entry.Lunch.Dish, entry.Lunch.Calories)
	fmt.Fprintf(b, "  Dinner: %s (%.0f kcal)\n", entry.Dinner.Dish, entry.Dinner.Calories)
}

func applySummary(applied *mealplan.ApplyResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Done! I've replaced %s with %s for %s %s.\n",
		applied.OriginalMeal.Dish, applied.UpdatedMeal.Dish, titleDay(applied.Day), applied.MealType)
	fmt.Fprintf(&b, "New meal: %.0f kcal, %.0fg protein, %.0fg carbs, %.0fg fats.",
		applied.UpdatedMeal.Calories, applied.UpdatedMeal.Protein, applied.UpdatedMeal.Carbs, applied.UpdatedMeal.Fats)
	return b.String()
}

func suggestionSummary(target Target, current mealplan.MealSlot, result *suggestion.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here are some alternatives to %s for %s %s:\n",
		current.Dish, titleDay(target.Day), target.MealType)
	for i, cand := range result.Replacements {
		fmt.Fprintf(&b, "%d. %s", i+1, cand.Name)
		if cand.Calories != nil {
			fmt.Fprintf(&b, " (%.0f kcal)", *cand.Calories)
		}
		if cand.WhyGoodReplacement != "" {
			fmt.Fprintf(&b, " - %s", cand.WhyGoodReplacement)
		}
		b.WriteString("\n")
	}
	if len(result.PersonalizedTips) > 0 {
		fmt.Fprintf(&b, "Tip: %s\n", result.PersonalizedTips[0])
	}
	b.WriteString("Reply with an option number to make the swap.")
	return b.String()
}

func titleDay(day string) string {
	if day == "" {
		return day
	}
	return strings.ToUpper(day[:1]) + day[1:]
}

func optionReplies(cands []mealplan.Candidate) []string {
	replies := make([]string, 0, len(cands))
	for i := range cands {
		replies = append(replies, fmt.Sprintf("Option %d", i+1))
	}
	return replies
}
