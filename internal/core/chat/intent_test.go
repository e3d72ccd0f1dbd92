package chat

import "testing"

func TestClassifyPrecedence(t *testing.T) {
	c := NewClassifier()

	cases := []struct {
		name    string
		message string
		state   SessionState
		want    IntentKind
	}{
		{"vague complaint", "I don't like my dinner", SessionState{}, IntentReplacement},
		{"complaint with reason", "I don't like this paneer dinner, give me something lighter", SessionState{}, IntentReplacement},
		{"verb plus meal", "change my lunch please", SessionState{}, IntentReplacement},
		{"want for meal", "i want dosa for breakfast", SessionState{}, IntentReplacement},
		{"direct instruction", "replace my paneer curry with grilled fish", SessionState{}, IntentDirectReplacement},
		{"swap to", "swap tuesday dinner to something vegan", SessionState{}, IntentDirectReplacement},

		// 查詢優先於替換：讀取絕不能被誤判成寫入
		{"plan query beats replacement", "what's my meal plan for today", SessionState{}, IntentPlanQuery},
		{"show meals", "show me my meal plan", SessionState{}, IntentPlanQuery},

		// 反向也成立：帶寫入動詞的「my meal plan」是替換，不是查詢
		{"plan-wide write instruction", "replace my meal plan with vegetarian meals", SessionState{}, IntentDirectReplacement},
		{"plan mention with change verb", "change my meal plan for tuesday", SessionState{}, IntentReplacement},

		// 確認語句只在有待確認建議時成立
		{"option with pending", "option 2", SessionState{HasPending: true}, IntentConfirmation},
		{"affirmative with pending", "sounds good", SessionState{HasPending: true}, IntentConfirmation},
		{"replace with option", "replace with option 2", SessionState{HasPending: true}, IntentConfirmation},
		{"affirmative without pending", "sounds good", SessionState{}, IntentNone},

		{"modification", "make it spicier", SessionState{}, IntentModification},
		{"more protein", "add more protein to this", SessionState{}, IntentModification},

		{"recipe question", "how do i make khichdi", SessionState{}, IntentRecipeRequest},
		{"dish mention", "paneer tikka", SessionState{}, IntentRecipeRequest},
		{"recipe mode short message", "pasta carbonara", SessionState{RecipeMode: true}, IntentRecipeRequest},
		{"recipe suppressed by plan query", "show me my meal plan with paneer", SessionState{}, IntentPlanQuery},

		{"small talk", "good morning to you too, weather is great", SessionState{}, IntentNone},
		{"empty", "   ", SessionState{}, IntentNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.message, tc.state)
			if got.Kind != tc.want {
				t.Fatalf("%q => %s, want %s", tc.message, got.Kind, tc.want)
			}
		})
	}
}

func TestClassifyExtractsTarget(t *testing.T) {
	c := NewClassifier()

	got := c.Classify("swap tuesday dinner to something vegan", SessionState{})
	if got.Day != "tuesday" || got.MealType != "dinner" {
		t.Fatalf("expected tuesday/dinner, got %q/%q", got.Day, got.MealType)
	}

	got = c.Classify("change my lunch please", SessionState{})
	if got.Day != "" || got.MealType != "lunch" {
		t.Fatalf("expected empty day and lunch, got %q/%q", got.Day, got.MealType)
	}
}

func TestClassifyCandidateIndex(t *testing.T) {
	c := NewClassifier()
	pending := SessionState{HasPending: true}

	cases := []struct {
		message string
		want    int
	}{
		{"option 2", 1},
		{"option 1", 0},
		{"3", 2},
		{"the second one", 1},
		{"yes", 0},
		{"go ahead", 0},
	}
	for _, tc := range cases {
		got := c.Classify(tc.message, pending)
		if got.Kind != IntentConfirmation {
			t.Fatalf("%q should confirm, got %s", tc.message, got.Kind)
		}
		if got.CandidateIndex != tc.want {
			t.Fatalf("%q => index %d, want %d", tc.message, got.CandidateIndex, tc.want)
		}
	}
}
