package profile

import (
	"context"
	"errors"
	"time"

	"nutriplan/internal/pkg/common"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 使用者健康與飲食偏好資料
type User struct {
	ID                string         `gorm:"primaryKey;type:uuid" json:"id"`
	Name              string         `gorm:"size:120" json:"name"`
	Age               int            `json:"age"`
	Gender            string         `gorm:"size:20" json:"gender"`
	WeightKg          float64        `json:"weight_kg"`
	HeightCm          float64        `json:"height_cm"`
	ActivityLevel     string         `gorm:"size:40" json:"activity_level"`
	MeatPreference    string         `gorm:"size:40" json:"meat_preference"`
	CravingPattern    string         `gorm:"size:120" json:"craving_pattern"`
	CuisinePreference string         `gorm:"size:60" json:"cuisine_preference"`
	MedicalConditions datatypes.JSON `gorm:"type:jsonb" json:"medical_conditions"`
	FoodsToAvoid      datatypes.JSON `gorm:"type:jsonb" json:"foods_to_avoid"`
	Allergies         datatypes.JSON `gorm:"type:jsonb" json:"allergies"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// TableName 指定資料表名稱
func (User) TableName() string {
	return "users"
}

// ConditionList 解出醫療狀況清單，欄位為空時回傳 nil
func (u *User) ConditionList() []string {
	return decodeList(u.MedicalConditions)
}

// AvoidList 解出忌口食材清單
func (u *User) AvoidList() []string {
	return decodeList(u.FoodsToAvoid)
}

// AllergyList 解出過敏原清單
func (u *User) AllergyList() []string {
	return decodeList(u.Allergies)
}

func decodeList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := common.ParseJSONBytes(raw, &list); err != nil {
		return nil
	}
	return list
}

// Store 使用者資料存取介面
type Store interface {
	ByID(ctx context.Context, id string) (*User, error)
	Save(ctx context.Context, user *User) error
}

// GormStore 以 PostgreSQL 實作的使用者存取層
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 建立使用者存取層
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// ByID 依 ID 取得使用者
func (s *GormStore) ByID(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.WrapError(common.ErrUserNotFound, err)
		}
		return nil, common.NewDatabaseError("failed to load user", err)
	}
	return &user, nil
}

// Save 新增或更新使用者
func (s *GormStore) Save(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = common.GenerateUUID()
	}
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return common.NewDatabaseError("failed to save user", err)
	}
	return nil
}
