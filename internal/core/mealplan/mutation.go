package mealplan

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"nutriplan/internal/pkg/common"

	"go.uber.org/zap"
)

// 熱量換算常數：蛋白質與碳水 4 kcal/g、脂肪 9 kcal/g
// 巨量營養素缺漏時以 20% 蛋白質 / 50% 碳水 / 30% 脂肪 回填
const (
	kcalPerGramProtein = 4.0
	kcalPerGramCarbs   = 4.0
	kcalPerGramFat     = 9.0

	proteinCalorieRatio = 0.20
	carbsCalorieRatio   = 0.50
	fatCalorieRatio     = 0.30

	// 熱量與巨量營養素都缺時的保守預設
	defaultCalories = 300.0
)

// MutationService 把替換候選寫進計畫的服務
// 同一份計畫的寫入以互斥鎖序列化，避免兩個近乎同時的替換互相覆蓋
type MutationService struct {
	store Store
	locks sync.Map // planID -> *sync.Mutex
}

// NewMutationService 創建計畫寫入服務
func NewMutationService(store Store) *MutationService {
	return &MutationService{store: store}
}

// ApplyResult 寫入結果，含替換前後快照供呼叫端顯示差異
type ApplyResult struct {
	PlanID       string   `json:"plan_id"`
	Day          string   `json:"day"`
	MealType     string   `json:"meal_type"`
	UpdatedMeal  MealSlot `json:"updated_meal"`
	OriginalMeal MealSlot `json:"original_meal"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Apply 將候選寫入使用者最新計畫的指定位置
func (s *MutationService) Apply(ctx context.Context, userID, day, mealType string, cand Candidate) (*ApplyResult, error) {
	// 驗證在任何寫入前同步完成
	if strings.TrimSpace(cand.Name) == "" {
		return nil, common.NewValidationError("replacement candidate is missing a name")
	}
	mealType = strings.ToLower(strings.TrimSpace(mealType))
	if !IsValidMealType(mealType) {
		return nil, common.NewValidationError(fmt.Sprintf("invalid meal type: %s", mealType))
	}

	plan, err := s.store.LatestByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 同一份計畫只允許一個寫入進行中
	unlock := s.lockPlan(plan.ID)
	defer unlock()

	// 鎖內重讀，確保拿到前一個寫入的結果
	plan, err = s.store.ByID(ctx, plan.ID)
	if err != nil {
		return nil, err
	}

	days, err := plan.DayPlans()
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, common.ErrPlanNotFound
	}

	dayPlan := FindDay(days, day)
	if dayPlan == nil {
		return nil, common.WrapError(common.ErrDayNotFound, fmt.Errorf("day %q not in plan %s", day, plan.ID))
	}

	slotPtr := dayPlan.Slot(mealType)
	original := *slotPtr
	updated := NormalizeToSlot(cand, mealType)
	*slotPtr = updated

	if err := s.store.ReplaceDays(ctx, plan.ID, days); err != nil {
		return nil, err
	}

	result := &ApplyResult{
		PlanID:       plan.ID,
		Day:          dayPlan.Day,
		MealType:     mealType,
		UpdatedMeal:  updated,
		OriginalMeal: original,
	}

	// 寫入後重讀驗證；不一致只記警告，寫入本身已成功
	if warning := s.verifyWrite(ctx, plan.ID, dayPlan.Day, mealType, updated); warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}

	common.LogInfo("餐食替換已寫入",
		zap.String("plan_id", plan.ID),
		zap.String("day", dayPlan.Day),
		zap.String("meal_type", mealType),
		zap.String("previous_dish", original.Dish),
		zap.String("new_dish", updated.Dish),
	)

	return result, nil
}

// lockPlan 取得計畫層級互斥鎖
func (s *MutationService) lockPlan(planID string) func() {
	v, _ := s.locks.LoadOrStore(planID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// verifyWrite 寫入後重讀比對，回傳非空字串代表資料完整性警告
func (s *MutationService) verifyWrite(ctx context.Context, planID, day, mealType string, want MealSlot) string {
	stored, err := s.store.ByID(ctx, planID)
	if err != nil {
		common.LogWarn("寫入後驗證讀取失敗",
			zap.String("plan_id", planID),
			zap.Error(err),
		)
		return "post-write verification read failed"
	}

	days, err := stored.DayPlans()
	if err != nil {
		return "post-write verification could not decode plan"
	}
	dayPlan := FindDay(days, day)
	if dayPlan == nil {
		return "post-write verification could not find day"
	}
	got := dayPlan.Slot(mealType)
	if got == nil || got.Dish != want.Dish || got.Calories != want.Calories {
		common.LogWarn("寫入後驗證不一致",
			zap.String("plan_id", planID),
			zap.String("day", day),
			zap.String("meal_type", mealType),
			zap.String("expected_dish", want.Dish),
		)
		return "persisted meal does not match the intended replacement"
	}
	return ""
}

// NormalizeToSlot 把候選轉成完整的 MealSlot
// 七個欄位全部補齊，不留部分填寫的狀態
func NormalizeToSlot(cand Candidate, mealType string) MealSlot {
	slot := MealSlot{
		Dish:   strings.TrimSpace(cand.Name),
		Recipe: buildRecipeText(cand),
	}
	if slot.Dish == "" {
		slot.Dish = "Custom meal"
	}
	if slot.Recipe == "" {
		slot.Recipe = "No recipe provided"
	}

	slot.Calories, slot.Protein, slot.Carbs, slot.Fats = backfillNutrition(cand)
	slot.Tags = buildTags(cand, mealType, slot)

	return slot
}

// buildRecipeText recipe 欄位的固定回退鏈：
// instructions → 食材 + 描述 → 名稱 + 描述 + 備餐時間
func buildRecipeText(cand Candidate) string {
	if strings.TrimSpace(cand.Instructions) != "" {
		return strings.TrimSpace(cand.Instructions)
	}

	if len(cand.Ingredients) > 0 {
		text := "Ingredients: " + strings.Join(cand.Ingredients, ", ") + "."
		if strings.TrimSpace(cand.Description) != "" {
			text += " " + strings.TrimSpace(cand.Description)
		}
		return text
	}

	var parts []string
	if strings.TrimSpace(cand.Name) != "" {
		parts = append(parts, strings.TrimSpace(cand.Name)+".")
	}
	if strings.TrimSpace(cand.Description) != "" {
		parts = append(parts, strings.TrimSpace(cand.Description))
	}
	if strings.TrimSpace(cand.PrepTime) != "" {
		parts = append(parts, "Prep time: "+strings.TrimSpace(cand.PrepTime)+".")
	}
	return strings.Join(parts, " ")
}

// backfillNutrition 營養回填
// 有熱量缺巨量營養素 → 以 20/50/30 比例推回；
// 有巨量營養素缺熱量 → 以 4/4/9 推出熱量；
// 兩者皆缺 → 熱量取保守預設再推巨量營養素
func backfillNutrition(cand Candidate) (calories, protein, carbs, fats float64) {
	p := nonNegative(cand.Protein)
	c := nonNegative(cand.Carbs)
	f := nonNegative(cand.Fat)
	cal := nonNegative(cand.Calories)

	if cal == nil {
		if p != nil || c != nil || f != nil {
			derived := value(p)*kcalPerGramProtein + value(c)*kcalPerGramCarbs + value(f)*kcalPerGramFat
			derived = math.Round(derived)
			cal = &derived
		} else {
			derived := defaultCalories
			cal = &derived
		}
	}

	if p == nil {
		derived := math.Round(*cal * proteinCalorieRatio / kcalPerGramProtein)
		p = &derived
	}
	if c == nil {
		derived := math.Round(*cal * carbsCalorieRatio / kcalPerGramCarbs)
		c = &derived
	}
	if f == nil {
		derived := math.Round(*cal * fatCalorieRatio / kcalPerGramFat)
		f = &derived
	}

	return *cal, *p, *c, *f
}

func nonNegative(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if *v < 0 {
		zero := 0.0
		return &zero
	}
	return v
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// buildTags 組出標籤：餐別永遠在第一位，接著難度與飲食屬性，最後去重
func buildTags(cand Candidate, mealType string, slot MealSlot) []string {
	tags := []string{mealType}

	difficulty := strings.ToLower(strings.TrimSpace(cand.Difficulty))
	switch difficulty {
	case "easy", "medium", "hard":
	default:
		difficulty = "easy"
	}
	tags = append(tags, difficulty)

	text := strings.ToLower(strings.Join(append([]string{cand.Name, cand.Description, cand.Instructions}, cand.Ingredients...), " "))

	if strings.Contains(text, "vegan") {
		tags = append(tags, "vegan", "vegetarian")
	} else if strings.Contains(text, "vegetarian") || strings.Contains(text, "paneer") || strings.Contains(text, "tofu") {
		tags = append(tags, "vegetarian")
	}
	if slot.Protein >= 25 {
		tags = append(tags, "high-protein")
	}
	if slot.Carbs <= 20 {
		tags = append(tags, "low-carb")
	}
	if slot.Calories < 400 {
		tags = append(tags, "healthy")
	}
	if minutes := parsePrepMinutes(cand.PrepTime); minutes > 0 && minutes <= 20 {
		tags = append(tags, "quick")
	}

	return dedupeTags(tags)
}

// parsePrepMinutes 從備餐時間字串取第一個數字當分鐘數
func parsePrepMinutes(prepTime string) int {
	match := numberPattern.FindString(prepTime)
	if match == "" {
		return 0
	}
	var minutes float64
	if _, err := fmt.Sscanf(match, "%g", &minutes); err != nil {
		return 0
	}
	return int(minutes)
}

// dedupeTags 去重但保留順序
func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
