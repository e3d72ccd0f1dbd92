package mealplan

import (
	"context"
	"sync"
	"testing"

	"nutriplan/internal/pkg/common"

	"go.uber.org/zap"
)

func init() {
	common.Logger = zap.NewNop()
}

func f(v float64) *float64 { return &v }

// fakeStore 記憶體版計畫存取，寫入行為可被測試覆寫
type fakeStore struct {
	mu      sync.Mutex
	plans   map[string]*WeeklyPlan
	byUser  map[string]string
	corrupt bool // 寫入後驗證時回傳被竄改的資料
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		plans:  make(map[string]*WeeklyPlan),
		byUser: make(map[string]string),
	}
}

func (s *fakeStore) add(t *testing.T, userID string, days []DayPlan) *WeeklyPlan {
	t.Helper()
	plan := &WeeklyPlan{ID: "plan-" + userID, UserID: userID}
	if err := plan.SetDayPlans(days); err != nil {
		t.Fatalf("failed to seed plan: %v", err)
	}
	s.plans[plan.ID] = plan
	s.byUser[userID] = plan.ID
	return plan
}

func (s *fakeStore) LatestByUser(ctx context.Context, userID string) (*WeeklyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUser[userID]
	if !ok {
		return nil, common.ErrPlanNotFound
	}
	cp := *s.plans[id]
	return &cp, nil
}

func (s *fakeStore) ByID(ctx context.Context, id string) (*WeeklyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[id]
	if !ok {
		return nil, common.ErrPlanNotFound
	}
	cp := *plan
	if s.corrupt {
		days, _ := cp.DayPlans()
		for i := range days {
			days[i].Dinner.Dish = "corrupted"
			days[i].Lunch.Dish = "corrupted"
			days[i].Breakfast.Dish = "corrupted"
		}
		_ = cp.SetDayPlans(days)
	}
	return &cp, nil
}

func (s *fakeStore) ReplaceDays(ctx context.Context, planID string, days []DayPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[planID]
	if !ok {
		return common.ErrPlanNotFound
	}
	return plan.SetDayPlans(days)
}

func (s *fakeStore) Create(ctx context.Context, plan *WeeklyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = plan
	s.byUser[plan.UserID] = plan.ID
	return nil
}

func seedWeek(t *testing.T, store *fakeStore, userID string) *WeeklyPlan {
	t.Helper()
	days := make([]DayPlan, 0, len(Weekdays))
	for _, day := range Weekdays {
		days = append(days, DayPlan{
			Day:       day,
			Breakfast: MealSlot{Dish: "Oats", Calories: 320, Protein: 12, Carbs: 50, Fats: 8, Recipe: "Cook oats", Tags: []string{"breakfast"}},
			Lunch:     MealSlot{Dish: "Rice and Dal", Calories: 500, Protein: 20, Carbs: 80, Fats: 10, Recipe: "Cook rice and dal", Tags: []string{"lunch"}},
			Dinner:    MealSlot{Dish: "Paneer Curry", Calories: 450, Protein: 22, Carbs: 30, Fats: 25, Recipe: "Cook paneer", Tags: []string{"dinner"}},
		})
	}
	return store.add(t, userID, days)
}

func TestApplyReplacesSlot(t *testing.T) {
	store := newFakeStore()
	seedWeek(t, store, "user-1")
	svc := NewMutationService(store)

	cand := Candidate{
		Name:         "Grilled Fish",
		Description:  "Light grilled fish with vegetables",
		Calories:     f(400),
		Instructions: "Season fish and grill for 10 minutes.",
	}

	res, err := svc.Apply(context.Background(), "user-1", "Monday", "lunch", cand)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if res.OriginalMeal.Dish != "Rice and Dal" {
		t.Fatalf("unexpected original meal: %q", res.OriginalMeal.Dish)
	}
	if res.UpdatedMeal.Dish != "Grilled Fish" {
		t.Fatalf("unexpected updated meal: %q", res.UpdatedMeal.Dish)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}

	// 寫入結果必須完整：七個欄位齊備且非負
	stored, _ := store.ByID(context.Background(), res.PlanID)
	days, _ := stored.DayPlans()
	got := FindDay(days, "monday").Lunch
	if got.Dish == "" || got.Recipe == "" || len(got.Tags) == 0 {
		t.Fatalf("persisted slot is partially populated: %+v", got)
	}
	if got.Calories < 0 || got.Protein < 0 || got.Carbs < 0 || got.Fats < 0 {
		t.Fatalf("persisted slot has negative nutrition: %+v", got)
	}
}

func TestApplyBackfillsMacrosFromCalories(t *testing.T) {
	store := newFakeStore()
	seedWeek(t, store, "user-1")
	svc := NewMutationService(store)

	// 只有名稱與熱量：巨量營養素依 20/50/30 與 4/4/9 回填
	res, err := svc.Apply(context.Background(), "user-1", "tuesday", "dinner", Candidate{
		Name:     "Grilled Fish",
		Calories: f(400),
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	got := res.UpdatedMeal
	if got.Protein != 20 || got.Carbs != 50 || got.Fats != 13 {
		t.Fatalf("unexpected backfill: protein=%v carbs=%v fats=%v", got.Protein, got.Carbs, got.Fats)
	}
}

func TestApplyMissingNameRejected(t *testing.T) {
	store := newFakeStore()
	seedWeek(t, store, "user-1")
	svc := NewMutationService(store)

	_, err := svc.Apply(context.Background(), "user-1", "monday", "lunch", Candidate{})
	if err == nil || !common.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyUnknownDay(t *testing.T) {
	store := newFakeStore()
	// 只放週二，讓 Monday 缺席
	store.add(t, "user-1", []DayPlan{{Day: "tuesday"}})
	svc := NewMutationService(store)

	_, err := svc.Apply(context.Background(), "user-1", "Monday", "lunch", Candidate{Name: "Salad"})
	if !common.IsErrorCode(err, common.ErrCodeDayNotFound) {
		t.Fatalf("expected DAY_NOT_FOUND, got %v", err)
	}
}

func TestApplyNoPlan(t *testing.T) {
	svc := NewMutationService(newFakeStore())

	_, err := svc.Apply(context.Background(), "ghost", "monday", "lunch", Candidate{Name: "Salad"})
	if !common.IsErrorCode(err, common.ErrCodePlanNotFound) {
		t.Fatalf("expected PLAN_NOT_FOUND, got %v", err)
	}
}

func TestApplyVerificationWarning(t *testing.T) {
	store := newFakeStore()
	seedWeek(t, store, "user-1")
	svc := NewMutationService(store)

	// 先成功寫入一次再開啟竄改模式會讓鎖內重讀也讀到壞資料，
	// 所以用獨立服務直接針對驗證函式
	store.corrupt = false
	res, err := svc.Apply(context.Background(), "user-1", "monday", "lunch", Candidate{Name: "Salad"})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	store.corrupt = true
	warning := svc.verifyWrite(context.Background(), res.PlanID, "monday", "lunch", res.UpdatedMeal)
	if warning == "" {
		t.Fatal("expected a data-integrity warning when the stored value differs")
	}
}

func TestNormalizeToSlotRecipeFallbackChain(t *testing.T) {
	// instructions 優先
	slot := NormalizeToSlot(Candidate{Name: "A", Instructions: "Do this.", Ingredients: []string{"x"}, Description: "d"}, SlotLunch)
	if slot.Recipe != "Do this." {
		t.Fatalf("instructions should win: %q", slot.Recipe)
	}

	// 沒有 instructions 用食材 + 描述
	slot = NormalizeToSlot(Candidate{Name: "A", Ingredients: []string{"rice", "beans"}, Description: "Hearty bowl"}, SlotLunch)
	if slot.Recipe != "Ingredients: rice, beans. Hearty bowl" {
		t.Fatalf("unexpected ingredient fallback: %q", slot.Recipe)
	}

	// 都沒有就用名稱 + 描述 + 備餐時間
	slot = NormalizeToSlot(Candidate{Name: "A", Description: "Fresh", PrepTime: "15 minutes"}, SlotLunch)
	if slot.Recipe != "A. Fresh Prep time: 15 minutes." {
		t.Fatalf("unexpected final fallback: %q", slot.Recipe)
	}
}

func TestNormalizeToSlotTags(t *testing.T) {
	slot := NormalizeToSlot(Candidate{
		Name:       "Vegan Tofu Stir Fry",
		Calories:   f(350),
		Protein:    f(30),
		Carbs:      f(15),
		Fat:        f(12),
		PrepTime:   "15 minutes",
		Difficulty: "Medium",
	}, SlotDinner)

	if slot.Tags[0] != SlotDinner {
		t.Fatalf("meal type must be the first tag: %v", slot.Tags)
	}
	want := map[string]bool{"dinner": true, "medium": true, "vegan": true, "vegetarian": true, "high-protein": true, "low-carb": true, "healthy": true, "quick": true}
	if len(slot.Tags) != len(want) {
		t.Fatalf("unexpected tag set: %v", slot.Tags)
	}
	for _, tag := range slot.Tags {
		if !want[tag] {
			t.Fatalf("unexpected tag %q in %v", tag, slot.Tags)
		}
	}
}

func TestBackfillCaloriesFromMacros(t *testing.T) {
	cal, p, c, fat := backfillNutrition(Candidate{Protein: f(20), Carbs: f(80), Fat: f(10)})
	if cal != 490 {
		t.Fatalf("expected 490 kcal (20*4+80*4+10*9), got %v", cal)
	}
	if p != 20 || c != 80 || fat != 10 {
		t.Fatalf("given macros must pass through: %v %v %v", p, c, fat)
	}
}

func TestBackfillEverythingMissing(t *testing.T) {
	cal, p, c, fat := backfillNutrition(Candidate{})
	if cal != defaultCalories {
		t.Fatalf("expected conservative default %v, got %v", defaultCalories, cal)
	}
	if p != 15 || c != 38 || fat != 10 {
		t.Fatalf("unexpected derived macros: %v %v %v", p, c, fat)
	}
}

func TestBackfillCalorieConsistency(t *testing.T) {
	// 由熱量推出的巨量營養素轉回熱量要落在容許誤差內
	cal, p, c, fat := backfillNutrition(Candidate{Calories: f(400)})
	derived := p*kcalPerGramProtein + c*kcalPerGramCarbs + fat*kcalPerGramFat
	if diff := derived - cal; diff < -15 || diff > 15 {
		t.Fatalf("macro backfill not calorie-consistent: cal=%v derived=%v", cal, derived)
	}
}
