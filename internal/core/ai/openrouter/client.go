package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nutriplan/internal/infrastructure/config"
	"nutriplan/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Client OpenRouter 客戶端
// 依序嘗試設定中的每個模型，單一模型內部做退避重試
type Client struct {
	config *config.Config
	client *resty.Client
}

// NewClient 創建 OpenRouter 客戶端
// 在行程啟動時建立一次後重複使用，不依賴任何套件層級狀態
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(cfg.OpenRouter.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.OpenRouter.APIKey)).
		SetHeader("HTTP-Referer", "https://nutriplan.app").
		SetHeader("X-Title", "NutriPlan")

	return &Client{
		config: cfg,
		client: client,
	}
}

// SetBaseURL 覆寫 API 位址（測試用）
func (c *Client) SetBaseURL(url string) {
	c.client.SetBaseURL(url)
}

// Generate 生成回應
// 模型依序嘗試：同一模型最多 MaxRetries 次，延遲逐次翻倍；
// 429 視為可重試，其餘 4xx 直接換下一個模型；
// 全部模型與次數耗盡回傳 AI_UNAVAILABLE
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for _, model := range c.config.OpenRouter.Models {
		content, err := c.generateWithModel(ctx, model, prompt)
		if err == nil {
			return content, nil
		}
		lastErr = err

		common.LogWarn("模型呼叫失敗，切換下一個模型",
			zap.String("model", model),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", common.WrapError(common.ErrAIUnavailable, fmt.Errorf("all models exhausted: %w", lastErr))
}

// generateWithModel 對單一模型做有上限的退避重試
func (c *Client) generateWithModel(ctx context.Context, model, prompt string) (string, error) {
	delay := c.config.OpenRouter.RetryBaseDelay
	var lastErr error

	for attempt := 1; attempt <= c.config.OpenRouter.MaxRetries; attempt++ {
		start := time.Now()
		content, status, err := c.doRequest(ctx, model, prompt)
		common.LogAICall(model, time.Since(start), err, "")

		if err == nil {
			return content, nil
		}
		lastErr = err

		// 4xx（除了 429）代表請求本身有問題，換模型不重試
		if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			return "", err
		}

		if attempt == c.config.OpenRouter.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return "", lastErr
}

// doRequest 發送一次 chat completion 請求
func (c *Client) doRequest(ctx context.Context, model, prompt string) (string, int, error) {
	req := map[string]interface{}{
		"model": model,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"max_tokens":  c.config.OpenRouter.MaxTokens,
		"temperature": 0.7,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")

	if err != nil {
		return "", 0, fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", resp.StatusCode(), fmt.Errorf("OpenRouter API returned status %d: %s", resp.StatusCode(), common.TruncateForLog(resp.String(), 200))
	}

	// 解析回應
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", resp.StatusCode(), fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", resp.StatusCode(), fmt.Errorf("no choices in OpenRouter response")
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", resp.StatusCode(), fmt.Errorf("empty content in OpenRouter response")
	}

	return content, resp.StatusCode(), nil
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
