package mealplan

import (
	"context"
	"errors"
	"time"

	"nutriplan/internal/pkg/common"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store 餐食計畫存取介面
type Store interface {
	// LatestByUser 取使用者最新的一份計畫
	LatestByUser(ctx context.Context, userID string) (*WeeklyPlan, error)

	// ByID 依 ID 取計畫（寫入後驗證用）
	ByID(ctx context.Context, id string) (*WeeklyPlan, error)

	// ReplaceDays 以整個 Days 文件覆寫計畫
	// 巢狀欄位的變更偵測不可靠，一律整欄覆寫
	ReplaceDays(ctx context.Context, planID string, days []DayPlan) error

	// Create 建立新計畫
	Create(ctx context.Context, plan *WeeklyPlan) error
}

// GormStore gorm 實作
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 創建計畫存取層
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// LatestByUser 取使用者最新的一份計畫
func (s *GormStore) LatestByUser(ctx context.Context, userID string) (*WeeklyPlan, error) {
	var plan WeeklyPlan
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.WrapError(common.ErrPlanNotFound, err)
		}
		return nil, err
	}
	return &plan, nil
}

// ByID 依 ID 取計畫
func (s *GormStore) ByID(ctx context.Context, id string) (*WeeklyPlan, error) {
	var plan WeeklyPlan
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.WrapError(common.ErrPlanNotFound, err)
		}
		return nil, err
	}
	return &plan, nil
}

// ReplaceDays 以整個 Days 文件覆寫計畫
func (s *GormStore) ReplaceDays(ctx context.Context, planID string, days []DayPlan) error {
	var holder WeeklyPlan
	if err := holder.SetDayPlans(days); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Model(&WeeklyPlan{}).
		Where("id = ?", planID).
		Updates(map[string]interface{}{
			"days":       datatypes.JSON(holder.Days),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrPlanNotFound
	}
	return nil
}

// Create 建立新計畫
func (s *GormStore) Create(ctx context.Context, plan *WeeklyPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(plan).Error
}
