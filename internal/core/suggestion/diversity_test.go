package suggestion

import (
	"testing"

	"nutriplan/internal/core/mealplan"
)

func cand(name, desc string, ingredients ...string) mealplan.Candidate {
	return mealplan.Candidate{Name: name, Description: desc, Ingredients: ingredients}
}

func TestJaccard(t *testing.T) {
	a := tokenSet("grilled chicken salad with olive oil")
	b := tokenSet("grilled chicken salad with lemon")
	if sim := jaccard(a, b); sim <= 0.5 {
		t.Fatalf("near-identical texts should score high, got %v", sim)
	}
	c := tokenSet("paneer butter masala")
	if sim := jaccard(a, c); sim != 0 {
		t.Fatalf("disjoint texts should score 0, got %v", sim)
	}
	if sim := jaccard(nil, a); sim != 0 {
		t.Fatalf("empty set should score 0, got %v", sim)
	}
}

func TestDiversifyDropsNearDuplicates(t *testing.T) {
	cands := []mealplan.Candidate{
		cand("Grilled Chicken Salad", "fresh grilled chicken with greens", "chicken", "lettuce", "olive oil"),
		cand("Chicken Salad Grilled", "grilled chicken with fresh greens", "chicken", "lettuce", "olive oil"),
		cand("Paneer Tikka", "spiced indian paneer skewers", "paneer", "yogurt", "spices"),
	}
	got := Diversify(cands, "", 0.6, 3)
	if len(got) != 2 {
		t.Fatalf("expected duplicate dropped, got %d candidates", len(got))
	}
	if got[0].Name != "Grilled Chicken Salad" {
		t.Fatalf("first occurrence should survive, got %q", got[0].Name)
	}
}

func TestDiversifyTagsCategories(t *testing.T) {
	got := Diversify([]mealplan.Candidate{
		cand("Paneer Tikka Masala", "creamy indian curry", "paneer"),
	}, "", 0.6, 3)
	if got[0].ProteinCategory != "paneer" {
		t.Fatalf("protein category: %q", got[0].ProteinCategory)
	}
	if got[0].CuisineCategory != "indian" {
		t.Fatalf("cuisine category: %q", got[0].CuisineCategory)
	}
}

func TestDiversifyPrefersUserCuisine(t *testing.T) {
	cands := []mealplan.Candidate{
		cand("Pesto Pasta", "basil pasta", "pasta", "basil"),
		cand("Dal Khichdi", "comforting lentil rice", "dal", "rice"),
		cand("Fish Tacos", "grilled fish tacos", "fish", "tortilla"),
	}
	got := Diversify(cands, "Indian", 0.6, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[0].Name != "Dal Khichdi" {
		t.Fatalf("preferred cuisine should come first, got %q", got[0].Name)
	}
}

func TestDiversifyRoundRobinAcrossGroups(t *testing.T) {
	// 同組的候選不應擠掉其他組
	cands := []mealplan.Candidate{
		cand("Chicken Curry", "indian chicken curry", "chicken"),
		cand("Chicken Biryani", "fragrant rice with chicken", "chicken", "rice"),
		cand("Tofu Stir Fry", "asian tofu with vegetables", "tofu", "broccoli"),
	}
	got := Diversify(cands, "", 0.6, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ProteinCategory == got[1].ProteinCategory {
		t.Fatalf("round robin should cross groups: %q vs %q", got[0].Name, got[1].Name)
	}
}

func TestDiversifyBackfillsWhenUnderfilled(t *testing.T) {
	cands := []mealplan.Candidate{
		cand("Chicken Curry", "indian chicken curry", "chicken"),
		cand("Chicken Biryani", "fragrant rice with chicken and saffron", "chicken", "rice", "saffron"),
	}
	got := Diversify(cands, "", 0.6, 3)
	if len(got) != 2 {
		t.Fatalf("exhausted candidates should return what exists, got %d", len(got))
	}
}
