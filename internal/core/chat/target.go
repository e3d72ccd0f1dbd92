package chat

import (
	"strings"
	"time"

	"nutriplan/internal/core/mealplan"
)

// mealTypeKeywords 口語餐別同義詞，順序影響比對優先序
var mealTypeKeywords = []struct {
	keyword string
	slot    string
}{
	{"breakfast", mealplan.SlotBreakfast},
	{"morning", mealplan.SlotBreakfast},
	{"lunch", mealplan.SlotLunch},
	{"noon", mealplan.SlotLunch},
	{"afternoon", mealplan.SlotLunch},
	{"dinner", mealplan.SlotDinner},
	{"evening", mealplan.SlotDinner},
	{"night", mealplan.SlotDinner},
}

// ExtractMealType 從訊息取出餐別，取不到回傳空字串
func ExtractMealType(message string) string {
	msg := strings.ToLower(message)
	for _, kw := range mealTypeKeywords {
		if strings.Contains(msg, kw.keyword) {
			return kw.slot
		}
	}
	return ""
}

// ExtractDay 從訊息取出星期名稱，取不到回傳空字串
func ExtractDay(message string) string {
	msg := strings.ToLower(message)
	for _, day := range mealplan.Weekdays {
		if strings.Contains(msg, day) {
			return day
		}
	}
	return ""
}

// Target 解析出的替換目標
type Target struct {
	Day      string
	MealType string
}

// TargetPolicy 模糊訊息的落點策略，皆可由設定覆寫
type TargetPolicy struct {
	DefaultMealForDay string           // 只講日期沒講餐別時的預設餐別
	PreferLargestMeal bool             // 完全模糊時挑熱量最高的餐
	Now               func() time.Time // 可注入的時鐘，測試用
}

// TargetResolver 把聊天訊息對應到計畫中的 (日期, 餐別)
type TargetResolver struct {
	policy TargetPolicy
}

// NewTargetResolver 建立目標解析器
func NewTargetResolver(policy TargetPolicy) *TargetResolver {
	if policy.DefaultMealForDay == "" {
		policy.DefaultMealForDay = mealplan.SlotDinner
	}
	if policy.Now == nil {
		policy.Now = time.Now
	}
	return &TargetResolver{policy: policy}
}

// Resolve 依序套用規則：
// 1. 訊息有餐別就用餐別（日期缺席時補今天）
// 2. 只有日期時餐別落到預設值
// 3. 都沒有時取今天熱量最高的一餐（平手依早午晚順序）
// 找不到對應日期時回傳 false，由上層組「找不到計畫」回覆
func (r *TargetResolver) Resolve(message string, days []mealplan.DayPlan) (Target, bool) {
	if len(days) == 0 {
		return Target{}, false
	}

	day := ExtractDay(message)
	mealType := ExtractMealType(message)

	if mealType != "" {
		if day == "" {
			day = r.today()
		}
		if mealplan.FindDay(days, day) == nil {
			return Target{}, false
		}
		return Target{Day: day, MealType: mealType}, true
	}

	if day != "" {
		if mealplan.FindDay(days, day) == nil {
			return Target{}, false
		}
		return Target{Day: day, MealType: r.policy.DefaultMealForDay}, true
	}

	today := r.today()
	entry := mealplan.FindDay(days, today)
	if entry == nil {
		return Target{}, false
	}
	return Target{Day: today, MealType: r.pickSlot(entry)}, true
}

func (r *TargetResolver) today() string {
	return strings.ToLower(r.policy.Now().Weekday().String())
}

// pickSlot 模糊抱怨通常指最大的一餐
func (r *TargetResolver) pickSlot(entry *mealplan.DayPlan) string {
	if !r.policy.PreferLargestMeal {
		return r.policy.DefaultMealForDay
	}
	best := mealplan.SlotBreakfast
	bestCalories := entry.Breakfast.Calories
	if entry.Lunch.Calories > bestCalories {
		best = mealplan.SlotLunch
		bestCalories = entry.Lunch.Calories
	}
	if entry.Dinner.Calories > bestCalories {
		best = mealplan.SlotDinner
	}
	return best
}
