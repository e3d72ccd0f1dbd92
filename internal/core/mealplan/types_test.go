package mealplan

import (
	"encoding/json"
	"testing"
)

func TestFlexNumberVariants(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		set   bool
		value float64
	}{
		{"integer", `420`, true, 420},
		{"float", `12.5`, true, 12.5},
		{"quoted number", `"35"`, true, 35},
		{"number with unit", `"400 kcal"`, true, 400},
		{"unit first", `"approx. 25g"`, true, 25},
		{"null", `null`, false, 0},
		{"empty string", `""`, false, 0},
		{"no digits", `"lots"`, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var n FlexNumber
			if err := json.Unmarshal([]byte(tc.raw), &n); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.raw, err)
			}
			if n.Set != tc.set || (tc.set && n.Value != tc.value) {
				t.Fatalf("%s => set=%v value=%v", tc.raw, n.Set, n.Value)
			}
		})
	}
}

func TestFlexTextJoinsArrays(t *testing.T) {
	var txt FlexText
	if err := json.Unmarshal([]byte(`["Boil water.","Add pasta."]`), &txt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(txt) != "Boil water.\nAdd pasta." {
		t.Fatalf("unexpected join: %q", txt)
	}

	if err := json.Unmarshal([]byte(`"Single step."`), &txt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(txt) != "Single step." {
		t.Fatalf("unexpected string: %q", txt)
	}
}

func TestFlexStringListVariants(t *testing.T) {
	var list FlexStringList

	if err := json.Unmarshal([]byte(`["rice","beans"]`), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 2 || list[0] != "rice" {
		t.Fatalf("unexpected list: %v", list)
	}

	// 物件陣列取 name/item 欄位
	if err := json.Unmarshal([]byte(`[{"name":"rice"},{"item":"beans"}]`), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 2 || list[1] != "beans" {
		t.Fatalf("unexpected object list: %v", list)
	}

	// 逗號字串拆開
	if err := json.Unmarshal([]byte(`"rice, beans, oil"`), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 3 || list[2] != "oil" {
		t.Fatalf("unexpected comma split: %v", list)
	}
}

func TestLooseCandidateNormalizePrecedence(t *testing.T) {
	raw := `{
		"title": "Chickpea Salad",
		"protein": "10g",
		"macros": {"protein": 18, "carbs": 40},
		"fats": 9,
		"prep_time": "15 minutes",
		"why_good_replacement": "Lighter and fresh",
		"health_benefits": "High fibre"
	}`
	var loose LooseCandidate
	if err := json.Unmarshal([]byte(raw), &loose); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cand := loose.Normalize()

	if cand.Name != "Chickpea Salad" {
		t.Fatalf("title should fill missing name, got %q", cand.Name)
	}
	// 巢狀 macros 優先於扁平欄位
	if cand.Protein == nil || *cand.Protein != 18 {
		t.Fatalf("nested macros.protein should win, got %v", cand.Protein)
	}
	if cand.Carbs == nil || *cand.Carbs != 40 {
		t.Fatalf("expected carbs 40, got %v", cand.Carbs)
	}
	// fat 缺席時 fats 遞補
	if cand.Fat == nil || *cand.Fat != 9 {
		t.Fatalf("fats alias should apply, got %v", cand.Fat)
	}
	if cand.PrepTime != "15 minutes" {
		t.Fatalf("prep_time alias should apply, got %q", cand.PrepTime)
	}
	if cand.WhyGoodReplacement != "Lighter and fresh" {
		t.Fatalf("snake_case reason should apply, got %q", cand.WhyGoodReplacement)
	}
	if len(cand.HealthBenefits) != 1 || cand.HealthBenefits[0] != "High fibre" {
		t.Fatalf("snake_case benefits should apply, got %v", cand.HealthBenefits)
	}
}

func TestLooseCandidateNameBeatsTitle(t *testing.T) {
	var loose LooseCandidate
	if err := json.Unmarshal([]byte(`{"name":"Dal Tadka","title":"Something Else"}`), &loose); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cand := loose.Normalize(); cand.Name != "Dal Tadka" {
		t.Fatalf("name must take precedence over title, got %q", cand.Name)
	}
}

func TestWeeklyPlanDayRoundTrip(t *testing.T) {
	plan := &WeeklyPlan{ID: "p1", UserID: "u1"}
	in := []DayPlan{{
		Day:    "monday",
		Dinner: MealSlot{Dish: "Khichdi", Calories: 420, Protein: 15, Carbs: 70, Fats: 8, Recipe: "Cook it", Tags: []string{"dinner"}},
	}}
	if err := plan.SetDayPlans(in); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err := plan.DayPlans()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(out) != 1 || out[0].Dinner.Dish != "Khichdi" {
		t.Fatalf("round trip lost data: %+v", out)
	}
	if FindDay(out, "MONDAY") == nil {
		t.Fatal("day lookup should be case-insensitive")
	}
}
