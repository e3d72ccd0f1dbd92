package suggestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"nutriplan/internal/core/ai/cache"
	"nutriplan/internal/core/mealplan"
	"nutriplan/internal/core/profile"
	"nutriplan/internal/infrastructure/config"
	"nutriplan/internal/pkg/common"

	"go.uber.org/zap"
)

func init() {
	common.Logger = zap.NewNop()
}

// scriptedGenerator 回傳固定腳本的生成後端
type scriptedGenerator struct {
	response string
	err      error
	calls    int
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Suggestion: config.SuggestionConfig{
			Count:               3,
			CacheTTL:            time.Minute,
			SimilarityThreshold: 0.6,
		},
		Cache: config.CacheConfig{
			Enabled:         true,
			MaxSize:         100,
			TTL:             time.Minute,
			CleanupInterval: time.Minute,
		},
	}
}

func paneerDinner() mealplan.MealSlot {
	return mealplan.MealSlot{Dish: "Paneer Butter Masala", Calories: 520, Protein: 22, Carbs: 35, Fats: 30}
}

// 模型輸出刻意帶 code fence、尾逗號與寬鬆欄位名
const scriptedResponse = "```json\n" + `{
	"replacements": [
		{"title": "Grilled Fish with Vegetables", "description": "light continental dinner", "calories": "380 kcal", "macros": {"protein": 32, "carbs": 18, "fat": 14}, "ingredients": ["fish", "zucchini"]},
		{"name": "Dal Khichdi", "description": "comforting indian lentil rice", "calories": 400, "protein": 16, "carbs": 62, "fats": 8, "ingredients": ["dal", "rice"]},
		{"name": "Tofu Stir Fry", "description": "asian tofu with crisp vegetables", "calories": 350, "protein": 20, "carbs": 25, "fat": 15, "ingredients": ["tofu", "broccoli"],}
	],
	"smartSubstitutions": ["use low-fat paneer instead of regular"],
	"personalizedTips": ["keep dinner under 500 kcal"]
}` + "\n```"

func TestSuggestParsesAndDiversifies(t *testing.T) {
	gen := &scriptedGenerator{response: scriptedResponse}
	engine := NewEngine(testConfig(), gen, nil, nil)

	result, err := engine.Suggest(context.Background(), "user-1", paneerDinner(), profile.BuildContext(nil), "too heavy, want something lighter")
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if len(result.Replacements) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(result.Replacements))
	}

	// 三個候選彼此不同
	seen := map[string]bool{}
	for _, cand := range result.Replacements {
		if cand.Name == "" {
			t.Fatal("candidate with empty name survived")
		}
		if seen[cand.Name] {
			t.Fatalf("duplicate candidate %q", cand.Name)
		}
		seen[cand.Name] = true
		if cand.ProteinCategory == "" || cand.CuisineCategory == "" {
			t.Fatalf("candidate %q not categorized", cand.Name)
		}
	}

	// title 欄位與帶單位的熱量要被收斂
	if !seen["Grilled Fish with Vegetables"] {
		t.Fatalf("title-keyed candidate lost: %v", seen)
	}
	if len(result.SmartSubstitutions) != 1 || len(result.PersonalizedTips) != 1 {
		t.Fatalf("substitutions/tips lost: %+v", result)
	}
}

func TestSuggestCacheHitSkipsGenerator(t *testing.T) {
	cfg := testConfig()
	gen := &scriptedGenerator{response: scriptedResponse}
	memory := cache.NewManager(cfg)
	defer memory.Close()
	engine := NewEngine(cfg, gen, memory, nil)

	ctx := context.Background()
	pref := profile.BuildContext(nil)
	if _, err := engine.Suggest(ctx, "user-1", paneerDinner(), pref, "too heavy"); err != nil {
		t.Fatalf("first suggest failed: %v", err)
	}
	if _, err := engine.Suggest(ctx, "user-1", paneerDinner(), pref, "too heavy"); err != nil {
		t.Fatalf("second suggest failed: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected a single backend call, got %d", gen.calls)
	}

	// 不同原因要視為不同鍵
	if _, err := engine.Suggest(ctx, "user-1", paneerDinner(), pref, "want more protein"); err != nil {
		t.Fatalf("third suggest failed: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("different reason must miss the cache, got %d calls", gen.calls)
	}
}

func TestSuggestUnparseableResponse(t *testing.T) {
	gen := &scriptedGenerator{response: "I'm sorry, I cannot help with that."}
	engine := NewEngine(testConfig(), gen, nil, nil)

	_, err := engine.Suggest(context.Background(), "user-1", paneerDinner(), profile.BuildContext(nil), "too heavy")
	if !common.IsErrorCode(err, common.ErrCodeUnparseableAI) {
		t.Fatalf("expected UNPARSEABLE_AI_RESPONSE, got %v", err)
	}
}

func TestSuggestGeneratorErrorPropagates(t *testing.T) {
	backendErr := common.WrapError(common.ErrAIUnavailable, errors.New("all models exhausted"))
	gen := &scriptedGenerator{err: backendErr}
	engine := NewEngine(testConfig(), gen, nil, nil)

	_, err := engine.Suggest(context.Background(), "user-1", paneerDinner(), profile.BuildContext(nil), "too heavy")
	if !common.IsErrorCode(err, common.ErrCodeAIUnavailable) {
		t.Fatalf("AI unavailability must propagate, got %v", err)
	}
}
