package database

import (
	"context"
	"fmt"

	"nutriplan/internal/core/chat"
	"nutriplan/internal/core/mealplan"
	"nutriplan/internal/core/profile"
	"nutriplan/internal/infrastructure/config"
	"nutriplan/internal/pkg/common"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 建立資料庫連線並套用遷移
func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
	if cfg.App.Debug {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(
		&profile.User{},
		&mealplan.WeeklyPlan{},
		&chat.ChatMessage{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	common.LogInfo("資料庫已連線並完成遷移")
	return db, nil
}

// Ping 檢查資料庫連線
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SeedDemoData 開發環境用的示範資料：一個使用者加一份 7 天計畫
// 已有資料時不動任何東西
func SeedDemoData(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&profile.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	user := &profile.User{
		Name:              "Demo User",
		Age:               30,
		Gender:            "female",
		WeightKg:          62,
		HeightCm:          165,
		ActivityLevel:     "Moderate",
		MeatPreference:    "vegetarian",
		CuisinePreference: "Indian",
	}
	if err := profile.NewGormStore(db).Save(ctx, user); err != nil {
		return err
	}

	days := make([]mealplan.DayPlan, 0, len(mealplan.Weekdays))
	for _, day := range mealplan.Weekdays {
		days = append(days, mealplan.DayPlan{
			Day:       day,
			Breakfast: mealplan.MealSlot{Dish: "Vegetable Poha", Calories: 320, Protein: 9, Carbs: 55, Fats: 8, Recipe: "Rinse poha, saute with onion, peas and turmeric.", Tags: []string{"breakfast", "easy"}},
			Lunch:     mealplan.MealSlot{Dish: "Rice and Dal", Calories: 500, Protein: 20, Carbs: 80, Fats: 10, Recipe: "Pressure-cook dal, temper with cumin, serve over rice.", Tags: []string{"lunch", "easy"}},
			Dinner:    mealplan.MealSlot{Dish: "Paneer Butter Masala", Calories: 520, Protein: 22, Carbs: 35, Fats: 30, Recipe: "Simmer paneer in tomato-cashew gravy.", Tags: []string{"dinner", "medium", "vegetarian"}},
		})
	}
	plan := &mealplan.WeeklyPlan{UserID: user.ID}
	if err := plan.SetDayPlans(days); err != nil {
		return err
	}
	if err := mealplan.NewGormStore(db).Create(ctx, plan); err != nil {
		return err
	}

	common.LogInfo("已建立示範資料",
		zap.String("user_id", user.ID),
		zap.String("plan_id", plan.ID),
	)
	return nil
}
