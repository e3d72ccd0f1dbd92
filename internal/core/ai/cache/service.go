package cache

import (
	"context"
	"fmt"
	"time"

	"nutriplan/internal/infrastructure/config"
	"nutriplan/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Service 外部快取（redis）
// 第二層快取：未設定 redis_addr 時整層停用，只剩行程內快取，不視為錯誤
type Service struct {
	client *redis.Client
	config *config.CacheConfig
}

// NewService 創建外部快取服務
// redis 連不上時回傳 nil service 並降級，不阻止啟動
func NewService(cfg *config.CacheConfig) *Service {
	if !cfg.Enabled || cfg.RedisAddr == "" {
		common.LogInfo("外部快取未設定，只使用行程內快取")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	// 測試連接
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		common.LogWarn("redis 連線失敗，降級為行程內快取",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
		return nil
	}

	common.LogInfo("外部快取已連線", zap.String("addr", cfg.RedisAddr))
	return &Service{
		client: client,
		config: cfg,
	}
}

// Get 獲取緩存
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	if s == nil || s.client == nil {
		return "", common.ErrCacheDisabled
	}

	data, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			common.LogCacheMiss("redis", key)
			return "", common.ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get cache: %w", err)
	}

	common.LogCacheHit("redis", key)
	return data, nil
}

// Set 設置緩存
func (s *Service) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s == nil || s.client == nil {
		return nil
	}

	if ttl <= 0 {
		ttl = s.config.TTL
	}

	if err := s.client.Set(ctx, s.redisKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// redisKey 生成 redis 鍵
func (s *Service) redisKey(key string) string {
	return fmt.Sprintf("nutriplan:suggest:%s", HashKey(key))
}

// Close 關閉連線
func (s *Service) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
