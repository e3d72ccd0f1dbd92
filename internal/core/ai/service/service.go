package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"nutriplan/internal/core/ai/openrouter"
	"nutriplan/internal/infrastructure/config"
)

// Service AI 服務
// 對上層只暴露「給 prompt、拿文字回應」，模型選擇與重試都在 client 內處理
type Service struct {
	config      *config.Config
	client      *openrouter.Client
	mu          sync.Mutex
	lastRequest time.Time
}

// NewService 創建 AI 服務
func NewService(cfg *config.Config, client *openrouter.Client) *Service {
	return &Service{
		config: cfg,
		client: client,
	}
}

// Generate 統一對外方法
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	if err := s.checkRequestRate(); err != nil {
		return "", err
	}

	// 統一 prompt 格式，去除多餘空白與 tab
	prompt = strings.TrimSpace(prompt)
	prompt = strings.ReplaceAll(prompt, "\t", " ")

	return s.client.Generate(ctx, prompt)
}

// checkRequestRate 檢查請求頻率
func (s *Service) checkRequestRate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.config.RateLimit.Enabled && s.config.RateLimit.Window > 0 {
		minInterval := s.config.RateLimit.Window / time.Duration(max(s.config.RateLimit.Requests, 1))
		if now.Sub(s.lastRequest) < minInterval {
			return errors.New("request rate limit exceeded")
		}
	}

	s.lastRequest = now
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
