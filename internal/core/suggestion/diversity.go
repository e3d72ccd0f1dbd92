package suggestion

import (
	"strings"

	"nutriplan/internal/core/mealplan"
)

// 蛋白質分類關鍵詞表，順序決定比對優先序
var proteinKeywords = []struct {
	category string
	words    []string
}{
	{"chicken", []string{"chicken"}},
	{"fish", []string{"fish", "salmon", "tuna", "prawn", "shrimp"}},
	{"egg", []string{"egg", "omelette"}},
	{"paneer", []string{"paneer", "cottage cheese"}},
	{"tofu", []string{"tofu", "soy", "tempeh"}},
	{"legume", []string{"dal", "lentil", "chickpea", "bean", "rajma", "chana"}},
	{"meat", []string{"mutton", "lamb", "beef", "pork"}},
}

// 菜系分類關鍵詞表
var cuisineKeywords = []struct {
	category string
	words    []string
}{
	{"indian", []string{"dal", "paneer", "masala", "curry", "biryani", "roti", "khichdi", "tikka", "dosa", "idli"}},
	{"mediterranean", []string{"hummus", "falafel", "olive", "feta", "couscous", "pita"}},
	{"asian", []string{"stir fry", "stir-fry", "noodle", "ramen", "sushi", "teriyaki", "pad thai", "tofu"}},
	{"mexican", []string{"taco", "burrito", "quesadilla", "salsa", "tortilla"}},
	{"italian", []string{"pasta", "risotto", "pizza", "pesto"}},
	{"continental", []string{"grilled", "roast", "baked", "salad", "soup", "sandwich"}},
}

func candidateText(c mealplan.Candidate) string {
	parts := []string{c.Name, c.Description}
	parts = append(parts, c.Ingredients...)
	return strings.ToLower(strings.Join(parts, " "))
}

// tokenSet 切成小寫單詞集合，太短的詞不納入
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?()\"'")
		if len(tok) < 3 {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// jaccard 兩個詞集合的交集比聯集
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func classify(text string, table []struct {
	category string
	words    []string
}) string {
	for _, entry := range table {
		for _, word := range entry.words {
			if strings.Contains(text, word) {
				return entry.category
			}
		}
	}
	return "other"
}

// Diversify 替候選去重並依 (蛋白質, 菜系) 分組輪選：
// 1. 兩兩算 Jaccard 相似度，高於門檻的後者剔除
// 2. 標上蛋白質與菜系分類
// 3. 輪流從各分組取候選，偏好使用者菜系的分組先取
// 4. 不足 count 時用剩餘候選回填
func Diversify(cands []mealplan.Candidate, preferredCuisine string, threshold float64, count int) []mealplan.Candidate {
	if threshold <= 0 {
		threshold = 0.6
	}
	if count <= 0 {
		count = 3
	}

	// 去重：保留先出現的候選
	kept := make([]mealplan.Candidate, 0, len(cands))
	sets := make([]map[string]struct{}, 0, len(cands))
	for _, cand := range cands {
		set := tokenSet(candidateText(cand))
		dup := false
		for _, prev := range sets {
			if jaccard(set, prev) > threshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, cand)
		sets = append(sets, set)
	}

	// 分類標記
	type groupKey struct{ protein, cuisine string }
	groups := make(map[groupKey][]mealplan.Candidate)
	var order []groupKey
	for i := range kept {
		text := candidateText(kept[i])
		kept[i].ProteinCategory = classify(text, proteinKeywords)
		kept[i].CuisineCategory = classify(text, cuisineKeywords)
		key := groupKey{kept[i].ProteinCategory, kept[i].CuisineCategory}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], kept[i])
	}

	// 偏好菜系的分組排前面，其餘維持出現順序
	preferred := strings.ToLower(strings.TrimSpace(preferredCuisine))
	if preferred != "" {
		sorted := make([]groupKey, 0, len(order))
		for _, key := range order {
			if key.cuisine == preferred {
				sorted = append(sorted, key)
			}
		}
		for _, key := range order {
			if key.cuisine != preferred {
				sorted = append(sorted, key)
			}
		}
		order = sorted
	}

	// 輪選
	selected := make([]mealplan.Candidate, 0, count)
	for len(selected) < count {
		advanced := false
		for _, key := range order {
			if len(groups[key]) == 0 {
				continue
			}
			selected = append(selected, groups[key][0])
			groups[key] = groups[key][1:]
			advanced = true
			if len(selected) == count {
				break
			}
		}
		if !advanced {
			break
		}
	}
	return selected
}
