package chat

import (
	"regexp"
	"strings"
)

// IntentKind 對話意圖分類
type IntentKind string

const (
	IntentNone              IntentKind = "none"
	IntentReplacement       IntentKind = "replacement"
	IntentDirectReplacement IntentKind = "direct_replacement"
	IntentConfirmation      IntentKind = "confirmation"
	IntentModification      IntentKind = "modification"
	IntentRecipeRequest     IntentKind = "recipe_request"
	IntentPlanQuery         IntentKind = "plan_query"
)

// SessionState 分類時需要的會話旗標
type SessionState struct {
	HasPending bool // 會話中存在待確認的替換建議
	RecipeMode bool // 使用者開啟了食譜模式
}

// Intent 分類結果
// CandidateIndex 僅在確認意圖時有意義，-1 表示未指定選項
type Intent struct {
	Kind           IntentKind
	Day            string
	MealType       string
	CandidateIndex int
}

var (
	optionPattern  = regexp.MustCompile(`\boption\s*(\d+)\b`)
	numericChoice  = regexp.MustCompile(`^\s*(\d+)\s*$`)
	directPattern  = regexp.MustCompile(`\b(change|replace|swap|update)\b.+\b(to|with)\s+\S+`)
	wantForPattern = regexp.MustCompile(`\bi\s+want\b.+\bfor\s+(breakfast|lunch|dinner)\b`)
	makeMealPatten = regexp.MustCompile(`\bmake\s+(my\s+)?(breakfast|lunch|dinner)\b`)
	modifyPattern  = regexp.MustCompile(`\bmake\s+(it|this|that)\s+\w+`)
)

var affirmatives = []string{
	"yes", "yes please", "yep", "yeah", "sure", "ok", "okay",
	"go ahead", "sounds good", "do it", "confirm",
}

var ordinalIndex = map[string]int{
	"first": 0, "1st": 0,
	"second": 1, "2nd": 1,
	"third": 2, "3rd": 2,
}

// 查詢限定疑問或展示語氣，避免「replace my meal plan ...」之類的寫入指令被吃掉
var planQueryPhrases = []string{
	"what's my meal plan", "whats my meal plan", "what is my meal plan",
	"what's on my plan", "whats on my plan", "what is on my plan",
	"show my meal", "show me my meal", "show my plan", "show me my plan",
	"what am i eating", "view my plan", "see my plan",
}

var replacementKeywords = []string{
	"something else", "instead of", "swap", "without", "modify",
	"don't like", "dont like", "don't want", "dont want", "replace",
	"hate my", "tired of", "sick of",
}

var modificationPhrases = []string{
	"add more", "less oil", "less sugar", "less salt", "more protein",
	"make it vegan", "make it vegetarian", "convert to",
}

var recipePhrases = []string{
	"how do i make", "how to make", "how to cook", "how do i cook",
	"recipe for", "recipe", "ingredients for", "cooking instructions",
}

// 常見菜名詞彙：命中即視為詢問作法
var knownDishWords = []string{
	"paneer", "dal", "khichdi", "biryani", "curry", "stir fry",
	"oats", "smoothie", "salad", "soup", "omelette", "pasta",
}

// intentRule 一條 (判斷式, 意圖) 規則
type intentRule struct {
	kind  IntentKind
	match func(msg string, state SessionState) bool
}

// Classifier 依固定順序逐條比對的意圖分類器
// 規則順序即優先序：查詢在寫入之前，確認在替換之前，直接替換在一般替換之前
type Classifier struct {
	rules []intentRule
}

// NewClassifier 建立意圖分類器
func NewClassifier() *Classifier {
	return &Classifier{
		rules: []intentRule{
			{IntentPlanQuery, matchPlanQuery},
			{IntentConfirmation, matchConfirmation},
			{IntentDirectReplacement, matchDirectReplacement},
			{IntentReplacement, matchReplacement},
			{IntentModification, matchModification},
			{IntentRecipeRequest, matchRecipeRequest},
		},
	}
}

// Classify 分類一則訊息，逐條比對並在第一個命中的規則停下
func (c *Classifier) Classify(message string, state SessionState) Intent {
	msg := strings.ToLower(strings.TrimSpace(message))
	intent := Intent{Kind: IntentNone, CandidateIndex: -1}
	if msg == "" {
		return intent
	}

	for _, rule := range c.rules {
		if rule.match(msg, state) {
			intent.Kind = rule.kind
			break
		}
	}

	switch intent.Kind {
	case IntentReplacement, IntentDirectReplacement, IntentModification:
		intent.Day = ExtractDay(msg)
		intent.MealType = ExtractMealType(msg)
	case IntentConfirmation:
		intent.CandidateIndex = extractCandidateIndex(msg)
	}
	return intent
}

func matchPlanQuery(msg string, _ SessionState) bool {
	// 帶寫入動詞的訊息交給替換規則
	for _, verb := range []string{"change", "replace", "swap", "update"} {
		if strings.Contains(msg, verb) {
			return false
		}
	}
	for _, phrase := range planQueryPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// 確認語句只有在有待確認建議時才有意義
func matchConfirmation(msg string, state SessionState) bool {
	if !state.HasPending {
		return false
	}
	if optionPattern.MatchString(msg) || numericChoice.MatchString(msg) {
		return true
	}
	for word := range ordinalIndex {
		if strings.Contains(msg, word+" one") || strings.Contains(msg, "the "+word) {
			return true
		}
	}
	for _, phrase := range affirmatives {
		if msg == phrase {
			return true
		}
	}
	return false
}

func matchDirectReplacement(msg string, _ SessionState) bool {
	return directPattern.MatchString(msg)
}

func matchReplacement(msg string, _ SessionState) bool {
	hasTarget := ExtractMealType(msg) != "" || ExtractDay(msg) != ""
	for _, verb := range []string{"change", "replace", "update", "swap"} {
		if strings.Contains(msg, verb) && hasTarget {
			return true
		}
	}
	if wantForPattern.MatchString(msg) || makeMealPatten.MatchString(msg) {
		return true
	}
	for _, kw := range replacementKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

func matchModification(msg string, _ SessionState) bool {
	if modifyPattern.MatchString(msg) {
		return true
	}
	for _, phrase := range modificationPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// 食譜模式下的短訊息一律當成詢問作法
func matchRecipeRequest(msg string, state SessionState) bool {
	for _, phrase := range recipePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	for _, dish := range knownDishWords {
		if strings.Contains(msg, dish) {
			return true
		}
	}
	return state.RecipeMode && len(msg) < 50
}

// extractCandidateIndex 解析訊息指向的候選序號（零起算），未指定時回傳 0
func extractCandidateIndex(msg string) int {
	if m := optionPattern.FindStringSubmatch(msg); m != nil {
		return parseIndex(m[1])
	}
	if m := numericChoice.FindStringSubmatch(msg); m != nil {
		return parseIndex(m[1])
	}
	for word, idx := range ordinalIndex {
		if strings.Contains(msg, word) {
			return idx
		}
	}
	return 0
}

func parseIndex(digits string) int {
	n := 0
	for _, r := range digits {
		n = n*10 + int(r-'0')
	}
	if n < 1 {
		return 0
	}
	return n - 1
}
