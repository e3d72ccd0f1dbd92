package chat

import (
	"testing"
	"time"

	"nutriplan/internal/core/mealplan"
)

// fixedClock 2026-08-31 是星期一
func fixedClock() time.Time {
	return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
}

func weekDays() []mealplan.DayPlan {
	days := make([]mealplan.DayPlan, 0, len(mealplan.Weekdays))
	for _, day := range mealplan.Weekdays {
		days = append(days, mealplan.DayPlan{
			Day:       day,
			Breakfast: mealplan.MealSlot{Dish: "Oats", Calories: 300},
			Lunch:     mealplan.MealSlot{Dish: "Rice", Calories: 550},
			Dinner:    mealplan.MealSlot{Dish: "Curry", Calories: 450},
		})
	}
	return days
}

func newResolver() *TargetResolver {
	return NewTargetResolver(TargetPolicy{
		DefaultMealForDay: mealplan.SlotDinner,
		PreferLargestMeal: true,
		Now:               fixedClock,
	})
}

func TestResolveExplicitMealAndDay(t *testing.T) {
	target, ok := newResolver().Resolve("change my wednesday lunch", weekDays())
	if !ok || target.Day != "wednesday" || target.MealType != "lunch" {
		t.Fatalf("got %+v ok=%v", target, ok)
	}
}

func TestResolveMealOnlyDefaultsToToday(t *testing.T) {
	target, ok := newResolver().Resolve("i hate my breakfast", weekDays())
	if !ok || target.Day != "monday" || target.MealType != "breakfast" {
		t.Fatalf("got %+v ok=%v", target, ok)
	}
}

func TestResolveDayOnlyDefaultsToDinner(t *testing.T) {
	// 只講日期沒講餐別時落到預設的晚餐
	target, ok := newResolver().Resolve("change friday for me", weekDays())
	if !ok || target.Day != "friday" || target.MealType != "dinner" {
		t.Fatalf("got %+v ok=%v", target, ok)
	}
}

func TestResolveVaguePicksLargestMeal(t *testing.T) {
	// 完全模糊：今天 + 熱量最高的一餐（午餐 550）
	target, ok := newResolver().Resolve("i don't like this food", weekDays())
	if !ok || target.Day != "monday" || target.MealType != "lunch" {
		t.Fatalf("got %+v ok=%v", target, ok)
	}
}

func TestResolveVagueTieBreakOrder(t *testing.T) {
	days := weekDays()
	for i := range days {
		days[i].Breakfast.Calories = 500
		days[i].Lunch.Calories = 500
		days[i].Dinner.Calories = 500
	}
	// 平手時依早餐→午餐→晚餐順序取第一個
	target, ok := newResolver().Resolve("ugh, not again", days)
	if !ok || target.MealType != "breakfast" {
		t.Fatalf("got %+v ok=%v", target, ok)
	}
}

func TestResolveLargestMealDisabled(t *testing.T) {
	resolver := NewTargetResolver(TargetPolicy{
		DefaultMealForDay: mealplan.SlotDinner,
		PreferLargestMeal: false,
		Now:               fixedClock,
	})
	target, ok := resolver.Resolve("i don't like this food", weekDays())
	if !ok || target.MealType != "dinner" {
		t.Fatalf("got %+v ok=%v", target, ok)
	}
}

func TestResolveEmptyPlan(t *testing.T) {
	if _, ok := newResolver().Resolve("change my lunch", nil); ok {
		t.Fatal("empty plan must not resolve")
	}
}

func TestResolveMissingDay(t *testing.T) {
	days := []mealplan.DayPlan{{Day: "tuesday"}}
	if _, ok := newResolver().Resolve("change my saturday dinner", days); ok {
		t.Fatal("absent day must not resolve")
	}
}
