package suggestion

import (
	"context"
	"fmt"
	"strings"

	"nutriplan/internal/core/ai/cache"
	"nutriplan/internal/core/mealplan"
	"nutriplan/internal/core/profile"
	"nutriplan/internal/infrastructure/config"
	"nutriplan/internal/pkg/common"

	"go.uber.org/zap"
)

// Generator 生成式後端的最小介面
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result 替換建議結果
type Result struct {
	Replacements       []mealplan.Candidate `json:"replacements"`
	SmartSubstitutions []string             `json:"smartSubstitutions"`
	PersonalizedTips   []string             `json:"personalizedTips"`
}

// looseResult 模型原始輸出的寬鬆形狀
type looseResult struct {
	Replacements       []mealplan.LooseCandidate `json:"replacements"`
	SmartSubstitutions mealplan.FlexStringList   `json:"smartSubstitutions"`
	PersonalizedTips   mealplan.FlexStringList   `json:"personalizedTips"`
}

// Engine 替換建議引擎：快取 → 提示詞 → 生成 → 容錯解析 → 多樣性過濾
type Engine struct {
	config *config.Config
	gen    Generator
	memory *cache.Manager
	redis  *cache.Service
}

// NewEngine 建立建議引擎，兩層快取皆可為 nil（降級為不快取）
func NewEngine(cfg *config.Config, gen Generator, memory *cache.Manager, redis *cache.Service) *Engine {
	return &Engine{
		config: cfg,
		gen:    gen,
		memory: memory,
		redis:  redis,
	}
}

// Suggest 產生替換建議
// 終端失敗（模型不可用、回應無法解析）一律回傳錯誤，呼叫端需要區分兩者
func (e *Engine) Suggest(ctx context.Context, userID string, currentMeal mealplan.MealSlot, pref profile.PreferenceContext, reason string) (*Result, error) {
	key := e.cacheKey(userID, currentMeal.Dish, reason)

	if cached := e.lookupCache(ctx, key); cached != nil {
		return cached, nil
	}

	prompt := e.buildPrompt(currentMeal, pref, reason)
	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var loose looseResult
	if err := common.ParseLooseJSON(raw, &loose); err != nil {
		common.LogError("AI suggestion response unparseable",
			zap.String("raw_prefix", common.TruncateForLog(raw, 200)),
			zap.Error(err))
		return nil, common.WrapError(common.ErrUnparseableAIResponse, err)
	}

	result := &Result{
		SmartSubstitutions: loose.SmartSubstitutions,
		PersonalizedTips:   loose.PersonalizedTips,
	}
	cands := make([]mealplan.Candidate, 0, len(loose.Replacements))
	for i := range loose.Replacements {
		cand := loose.Replacements[i].Normalize()
		if strings.TrimSpace(cand.Name) == "" {
			continue
		}
		cands = append(cands, cand)
	}
	result.Replacements = Diversify(
		cands,
		pref.CuisinePreference,
		e.config.Suggestion.SimilarityThreshold,
		e.config.Suggestion.Count,
	)

	e.storeCache(ctx, key, result)
	return result, nil
}

// cacheKey 由使用者、截短的菜名與截短的原因組指紋
func (e *Engine) cacheKey(userID, dish, reason string) string {
	fingerprint := fmt.Sprintf("suggest:%s:%s:%s",
		userID,
		common.TruncateForLog(strings.ToLower(strings.TrimSpace(dish)), 40),
		common.TruncateForLog(strings.ToLower(strings.TrimSpace(reason)), 60))
	return cache.HashKey(fingerprint)
}

func (e *Engine) lookupCache(ctx context.Context, key string) *Result {
	if value, err := e.memory.Get(ctx, key); err == nil {
		var result Result
		if common.ParseJSON(value, &result) == nil {
			return &result
		}
	}
	if value, err := e.redis.Get(ctx, key); err == nil {
		var result Result
		if common.ParseJSON(value, &result) == nil {
			// 回填內層快取
			_ = e.memory.Set(ctx, key, value, e.config.Suggestion.CacheTTL)
			return &result
		}
	}
	return nil
}

func (e *Engine) storeCache(ctx context.Context, key string, result *Result) {
	payload, err := common.ToJSON(result)
	if err != nil {
		return
	}
	ttl := e.config.Suggestion.CacheTTL
	if err := e.memory.Set(ctx, key, payload, ttl); err != nil {
		common.LogWarn("failed to cache suggestion in memory", zap.Error(err))
	}
	if err := e.redis.Set(ctx, key, payload, ttl); err != nil {
		common.LogWarn("failed to cache suggestion in redis", zap.Error(err))
	}
}

// buildPrompt 組建議提示詞，偏好欄位一律已補預設值
func (e *Engine) buildPrompt(meal mealplan.MealSlot, pref profile.PreferenceContext, reason string) string {
	var b strings.Builder
	b.WriteString("You are a nutrition assistant helping a user replace a meal in their weekly plan.\n\n")

	b.WriteString("Current meal:\n")
	fmt.Fprintf(&b, "- Dish: %s\n", meal.Dish)
	fmt.Fprintf(&b, "- Calories: %.0f kcal, Protein: %.0fg, Carbs: %.0fg, Fats: %.0fg\n\n", meal.Calories, meal.Protein, meal.Carbs, meal.Fats)

	b.WriteString("User profile:\n")
	fmt.Fprintf(&b, "- Age: %s\n", pref.Age)
	fmt.Fprintf(&b, "- Gender: %s\n", pref.Gender)
	fmt.Fprintf(&b, "- Weight: %s\n", pref.Weight)
	fmt.Fprintf(&b, "- Height: %s\n", pref.Height)
	fmt.Fprintf(&b, "- Activity level: %s\n", pref.ActivityLevel)
	fmt.Fprintf(&b, "- Meat preference: %s\n", pref.MeatPreference)
	fmt.Fprintf(&b, "- Craving pattern: %s\n", pref.CravingPattern)
	fmt.Fprintf(&b, "- Cuisine preference: %s\n", pref.CuisinePreference)
	fmt.Fprintf(&b, "- Medical conditions: %s\n", pref.MedicalConditions)
	fmt.Fprintf(&b, "- Foods to avoid: %s\n", pref.FoodsToAvoid)
	fmt.Fprintf(&b, "- Allergies: %s\n\n", pref.Allergies)

	fmt.Fprintf(&b, "Reason for replacement: %s\n\n", strings.TrimSpace(reason))

	fmt.Fprintf(&b, "Suggest exactly %d replacement meals. The three candidates must be mutually diverse: each should differ in cuisine, primary protein source, or cooking method.\n", e.config.Suggestion.Count)
	b.WriteString("Respond with JSON only, no commentary, in this shape:\n")
	b.WriteString(`{"replacements":[{"name":"","description":"","calories":0,"protein":0,"carbs":0,"fat":0,"prep_time":"","difficulty":"","ingredients":[],"instructions":"","why_good_replacement":"","health_benefits":[]}],"smartSubstitutions":[],"personalizedTips":[]}`)
	b.WriteString("\n")
	return b.String()
}
