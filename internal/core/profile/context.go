package profile

import (
	"fmt"
	"strings"
)

// 偏好欄位缺值時的預設文字
const (
	defaultNotSpecified  = "Not specified"
	defaultNone          = "None"
	defaultActivityLevel = "Moderate"
)

// PreferenceContext 提示詞用的使用者偏好摘要
// 所有欄位保證非空，缺值一律以預設文字補齊
type PreferenceContext struct {
	Age               string
	Gender            string
	Weight            string
	Height            string
	ActivityLevel     string
	MeatPreference    string
	CravingPattern    string
	CuisinePreference string
	MedicalConditions string
	FoodsToAvoid      string
	Allergies         string
}

// BuildContext 將使用者資料收斂成偏好摘要
// 純函式：同一輸入永遠得到同一輸出，nil 使用者得到全預設值
func BuildContext(user *User) PreferenceContext {
	pc := PreferenceContext{
		Age:               defaultNotSpecified,
		Gender:            defaultNotSpecified,
		Weight:            defaultNotSpecified,
		Height:            defaultNotSpecified,
		ActivityLevel:     defaultActivityLevel,
		MeatPreference:    defaultNotSpecified,
		CravingPattern:    defaultNotSpecified,
		CuisinePreference: defaultNotSpecified,
		MedicalConditions: defaultNone,
		FoodsToAvoid:      defaultNone,
		Allergies:         defaultNone,
	}
	if user == nil {
		return pc
	}

	if user.Age > 0 {
		pc.Age = fmt.Sprintf("%d", user.Age)
	}
	if v := strings.TrimSpace(user.Gender); v != "" {
		pc.Gender = v
	}
	if user.WeightKg > 0 {
		pc.Weight = fmt.Sprintf("%.1f kg", user.WeightKg)
	}
	if user.HeightCm > 0 {
		pc.Height = fmt.Sprintf("%.0f cm", user.HeightCm)
	}
	if v := strings.TrimSpace(user.ActivityLevel); v != "" {
		pc.ActivityLevel = v
	}
	if v := strings.TrimSpace(user.MeatPreference); v != "" {
		pc.MeatPreference = v
	}
	if v := strings.TrimSpace(user.CravingPattern); v != "" {
		pc.CravingPattern = v
	}
	if v := strings.TrimSpace(user.CuisinePreference); v != "" {
		pc.CuisinePreference = v
	}
	if list := user.ConditionList(); len(list) > 0 {
		pc.MedicalConditions = strings.Join(list, ", ")
	}
	if list := user.AvoidList(); len(list) > 0 {
		pc.FoodsToAvoid = strings.Join(list, ", ")
	}
	if list := user.AllergyList(); len(list) > 0 {
		pc.Allergies = strings.Join(list, ", ")
	}
	return pc
}
