package mealplan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"nutriplan/internal/pkg/common"

	"gorm.io/datatypes"
)

// 一週七天的正規名稱，計畫內以小寫儲存
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// 餐別名稱
const (
	SlotBreakfast = "breakfast"
	SlotLunch     = "lunch"
	SlotDinner    = "dinner"
)

// MealSlots 依序列出三個餐別，平手時以此順序優先
var MealSlots = []string{SlotBreakfast, SlotLunch, SlotDinner}

// IsValidMealType 檢查餐別名稱
func IsValidMealType(mealType string) bool {
	switch mealType {
	case SlotBreakfast, SlotLunch, SlotDinner:
		return true
	}
	return false
}

// MealSlot 一餐的完整資料
// 寫入後七個欄位必須全部存在：下游（顯示、郵件、統計）都假設欄位齊全
type MealSlot struct {
	Dish     string   `json:"dish"`
	Calories float64  `json:"calories"`
	Protein  float64  `json:"protein"`
	Fats     float64  `json:"fats"`
	Carbs    float64  `json:"carbs"`
	Recipe   string   `json:"recipe"`
	Tags     []string `json:"tags"`
}

// DayPlan 一天的三餐
type DayPlan struct {
	Day       string   `json:"day"`
	Breakfast MealSlot `json:"breakfast"`
	Lunch     MealSlot `json:"lunch"`
	Dinner    MealSlot `json:"dinner"`
}

// Slot 取得指定餐別的指標，餐別無效時回傳 nil
func (d *DayPlan) Slot(mealType string) *MealSlot {
	switch strings.ToLower(mealType) {
	case SlotBreakfast:
		return &d.Breakfast
	case SlotLunch:
		return &d.Lunch
	case SlotDinner:
		return &d.Dinner
	}
	return nil
}

// WeeklyPlan 使用者的一週餐食計畫
// Days 以 JSON 欄位儲存 7 筆 DayPlan；「最新計畫」= created_at 最大的一筆
type WeeklyPlan struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string         `gorm:"type:uuid;index" json:"user_id"`
	Days      datatypes.JSON `gorm:"type:jsonb" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName 指定資料表名稱
func (WeeklyPlan) TableName() string {
	return "weekly_plans"
}

// DayPlans 解出 Days 欄位
func (p *WeeklyPlan) DayPlans() ([]DayPlan, error) {
	if len(p.Days) == 0 {
		return nil, nil
	}
	var days []DayPlan
	if err := common.ParseJSONBytes(p.Days, &days); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan days: %w", err)
	}
	return days, nil
}

// SetDayPlans 覆寫 Days 欄位
func (p *WeeklyPlan) SetDayPlans(days []DayPlan) error {
	data, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("failed to marshal plan days: %w", err)
	}
	p.Days = datatypes.JSON(data)
	return nil
}

// FindDay 以大小寫不敏感比對日名找出當天的計畫
func FindDay(days []DayPlan, day string) *DayPlan {
	target := strings.ToLower(strings.TrimSpace(day))
	for i := range days {
		if strings.ToLower(strings.TrimSpace(days[i].Day)) == target {
			return &days[i]
		}
	}
	return nil
}

// Candidate 標準化後的替換候選
// 由建議引擎產生或由呼叫端提交，進入系統前一律先過 LooseCandidate.Normalize
type Candidate struct {
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	Calories           *float64 `json:"calories,omitempty"`
	Protein            *float64 `json:"protein,omitempty"`
	Carbs              *float64 `json:"carbs,omitempty"`
	Fat                *float64 `json:"fat,omitempty"`
	PrepTime           string   `json:"prep_time,omitempty"`
	Difficulty         string   `json:"difficulty,omitempty"`
	Ingredients        []string `json:"ingredients,omitempty"`
	Instructions       string   `json:"instructions,omitempty"`
	WhyGoodReplacement string   `json:"why_good_replacement,omitempty"`
	HealthBenefits     []string `json:"health_benefits,omitempty"`
	Customizations     string   `json:"customizations,omitempty"`
	ProteinCategory    string   `json:"protein_category,omitempty"`
	CuisineCategory    string   `json:"cuisine_category,omitempty"`
}

// ---------------- 寬鬆版中繼結構：吸收模型與呼叫端的各種欄位寫法 ----------------

var numberPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

// FlexNumber 容錯數值：接受數字、帶單位的字串（"400 kcal"、"20g"）與 null
type FlexNumber struct {
	Value float64
	Set   bool
}

// UnmarshalJSON 實現容錯解析
func (f *FlexNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	match := numberPattern.FindString(s)
	if match == "" {
		return nil
	}
	var v float64
	if _, err := fmt.Sscanf(match, "%g", &v); err != nil {
		return nil
	}
	f.Value = v
	f.Set = true
	return nil
}

// Ptr 轉成指標表示，未設定時為 nil
func (f FlexNumber) Ptr() *float64 {
	if !f.Set {
		return nil
	}
	v := f.Value
	return &v
}

// FlexText 容錯文字：接受字串或字串陣列（以換行合併）
type FlexText string

// UnmarshalJSON 實現容錯解析
func (t *FlexText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = FlexText(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*t = FlexText(strings.Join(list, "\n"))
		return nil
	}
	// 其他型別（物件、數字）一律忽略，不阻塞解析
	return nil
}

// FlexStringList 容錯字串清單：接受字串陣列、物件陣列（取 name 欄位）或逗號字串
type FlexStringList []string

// UnmarshalJSON 實現容錯解析
func (l *FlexStringList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*l = list
		return nil
	}
	var objs []struct {
		Name string `json:"name"`
		Item string `json:"item"`
	}
	if err := json.Unmarshal(b, &objs); err == nil {
		out := make([]string, 0, len(objs))
		for _, o := range objs {
			if o.Name != "" {
				out = append(out, o.Name)
			} else if o.Item != "" {
				out = append(out, o.Item)
			}
		}
		*l = out
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if v := strings.TrimSpace(p); v != "" {
				out = append(out, v)
			}
		}
		*l = out
		return nil
	}
	return nil
}

// LooseCandidate 模型（或舊版前端）回傳的候選，欄位名稱不固定
type LooseCandidate struct {
	Name        string     `json:"name"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Calories    FlexNumber `json:"calories"`
	ProteinFlat FlexNumber `json:"protein"`
	CarbsFlat   FlexNumber `json:"carbs"`
	FatFlat     FlexNumber `json:"fat"`
	FatsFlat    FlexNumber `json:"fats"`
	Macros      struct {
		Protein FlexNumber `json:"protein"`
		Carbs   FlexNumber `json:"carbs"`
		Fat     FlexNumber `json:"fat"`
	} `json:"macros"`
	PrepTime          string         `json:"prepTime"`
	PrepTimeSnake     string         `json:"prep_time"`
	Difficulty        string         `json:"difficulty"`
	Ingredients       FlexStringList `json:"ingredients"`
	Instructions      FlexText       `json:"instructions"`
	WhyGood           string         `json:"whyGoodReplacement"`
	WhyGoodSnake      string         `json:"why_good_replacement"`
	HealthBenefits    FlexStringList `json:"healthBenefits"`
	HealthBenefitsAlt FlexStringList `json:"health_benefits"`
	Customizations    FlexText       `json:"customizations"`
}

// Normalize 依固定優先序收斂成標準候選：
// 名稱 name > title；蛋白質 macros.protein > protein；脂肪 macros.fat > fat > fats
func (lc *LooseCandidate) Normalize() Candidate {
	c := Candidate{
		Name:         strings.TrimSpace(firstNonEmpty(lc.Name, lc.Title)),
		Description:  strings.TrimSpace(lc.Description),
		Calories:     lc.Calories.Ptr(),
		PrepTime:     strings.TrimSpace(firstNonEmpty(lc.PrepTime, lc.PrepTimeSnake)),
		Difficulty:   strings.ToLower(strings.TrimSpace(lc.Difficulty)),
		Ingredients:  lc.Ingredients,
		Instructions: strings.TrimSpace(string(lc.Instructions)),
	}

	c.Protein = firstSetNumber(lc.Macros.Protein, lc.ProteinFlat)
	c.Carbs = firstSetNumber(lc.Macros.Carbs, lc.CarbsFlat)
	c.Fat = firstSetNumber(lc.Macros.Fat, lc.FatFlat, lc.FatsFlat)

	c.WhyGoodReplacement = strings.TrimSpace(firstNonEmpty(lc.WhyGood, lc.WhyGoodSnake))
	if len(lc.HealthBenefits) > 0 {
		c.HealthBenefits = lc.HealthBenefits
	} else {
		c.HealthBenefits = lc.HealthBenefitsAlt
	}
	c.Customizations = strings.TrimSpace(string(lc.Customizations))

	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstSetNumber(values ...FlexNumber) *float64 {
	for _, v := range values {
		if v.Set {
			return v.Ptr()
		}
	}
	return nil
}
