package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	OpenRouter  OpenRouterConfig `mapstructure:"openrouter"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Suggestion  SuggestionConfig `mapstructure:"suggestion"`
	Planner     PlannerConfig    `mapstructure:"planner"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// OpenRouterConfig OpenRouter 配置
// Models 依序為主要模型與備援模型，呼叫失敗時依序切換
type OpenRouterConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Models         []string      `mapstructure:"models"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

// DatabaseConfig 資料庫配置
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// CacheConfig 緩存配置
// RedisAddr 留空時只使用行程內快取
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RedisAddr       string        `mapstructure:"redis_addr"`
}

// SuggestionConfig 替換建議引擎設定
type SuggestionConfig struct {
	Count               int           `mapstructure:"count"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
	SimilarityThreshold float64       `mapstructure:"similarity_threshold"`
}

// PlannerConfig 目標解析的產品策略設定
// 預設行為承襲原產品：只講日期時預設晚餐、完全沒講時挑當天熱量最高的一餐
type PlannerConfig struct {
	DefaultMealForDay string `mapstructure:"default_meal_for_day"`
	PreferLargestMeal bool   `mapstructure:"prefer_largest_meal"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件，沒有也可以純靠環境變數
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("openrouter.models", "OPENROUTER_MODELS")
	viper.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	viper.BindEnv("database.dsn", "DATABASE_DSN")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.redis_addr", "REDIS_ADDR")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 添加調試日誌（logger 尚未初始化，改用 fmt.Println）
	fmt.Println("Loading configuration", "openrouter_api_key:", maskAPIKey(viper.GetString("openrouter.api_key")), "openrouter_models:", viper.GetString("openrouter.models"))

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// OPENROUTER_MODELS 以逗號分隔，從環境變數進來時是單一字串
	if len(config.OpenRouter.Models) == 1 && strings.Contains(config.OpenRouter.Models[0], ",") {
		config.OpenRouter.Models = splitModels(config.OpenRouter.Models[0])
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// splitModels 將逗號分隔的模型清單拆成有序切片
func splitModels(raw string) []string {
	parts := strings.Split(raw, ",")
	models := make([]string, 0, len(parts))
	for _, p := range parts {
		if m := strings.TrimSpace(p); m != "" {
			models = append(models, m)
		}
	}
	return models
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "nutriplan")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// OpenRouter 設定
	viper.SetDefault("openrouter.models", []string{"meta-llama/llama-3.3-70b-instruct:free", "qwen/qwen-2.5-72b-instruct:free"})
	viper.SetDefault("openrouter.max_tokens", 2048)
	viper.SetDefault("openrouter.timeout", "60s")
	viper.SetDefault("openrouter.max_retries", 3)
	viper.SetDefault("openrouter.retry_base_delay", "500ms")

	// 資料庫設定
	viper.SetDefault("database.dsn", "host=localhost user=nutriplan password=nutriplan dbname=nutriplan port=5432 sslmode=disable")

	// 快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")
	viper.SetDefault("cache.redis_addr", "")

	// 替換建議設定
	viper.SetDefault("suggestion.count", 3)
	viper.SetDefault("suggestion.cache_ttl", "10m")
	viper.SetDefault("suggestion.similarity_threshold", 0.6)

	// 目標解析策略
	viper.SetDefault("planner.default_meal_for_day", "dinner")
	viper.SetDefault("planner.prefer_largest_meal", true)

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	// 新增 dedup window 預設
	viper.SetDefault("dedup_window", "1s")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證模型清單
	if len(config.OpenRouter.Models) == 0 {
		return fmt.Errorf("at least one openrouter model is required")
	}
	if config.OpenRouter.MaxRetries <= 0 {
		return fmt.Errorf("invalid openrouter max retries")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	// 驗證建議引擎設定
	if config.Suggestion.Count <= 0 {
		return fmt.Errorf("invalid suggestion count")
	}
	if config.Suggestion.SimilarityThreshold <= 0 || config.Suggestion.SimilarityThreshold > 1 {
		return fmt.Errorf("invalid suggestion similarity threshold")
	}
	if config.Suggestion.CacheTTL <= 0 {
		return fmt.Errorf("invalid suggestion cache ttl")
	}

	// 驗證目標解析策略
	switch config.Planner.DefaultMealForDay {
	case "breakfast", "lunch", "dinner":
	default:
		return fmt.Errorf("invalid planner default meal: %s", config.Planner.DefaultMealForDay)
	}

	return nil
}
