package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address    string `yaml:"address"`    // MongoDB 服务器地址
	Username   string `yaml:"username"`   // 用户名
	Password   string `yaml:"password"`   // 密码
	Database   string `yaml:"database"`   // 数据库名称
	Collection string `yaml:"collection"` // 键值存储使用的集合
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表
	Topic   string   `yaml:"topic"`   // 对话事件主题
}

// DatabaseConfigs 包含所有外部存储的配置。
type DatabaseConfigs struct {
	Redis   RedisConfig `yaml:"redis"`
	MySQL   MySQLConfig `yaml:"mysql"`
	MongoDB MongoConfig `yaml:"mongodb"`
	Kafka   KafkaConfig `yaml:"kafka"`
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"` // 例如: "development", "production"
}

// ServerConfig 定义了 HTTP 服务的监听配置。
type ServerConfig struct {
	Address         string `yaml:"address"`
	ShutdownTimeout string `yaml:"shutdownTimeout"` // 例如: "10s"
}

// AuthConfig 用于配置身份认证。
type AuthConfig struct {
	JwtSecret    string `yaml:"jwtSecret"`    // JWT 密钥
	TokenTTL     int    `yaml:"tokenTTL"`     // JWT 令牌的有效期（秒）
	Issuer       string `yaml:"issuer"`       // JWT 签发者
	AccountStore string `yaml:"accountStore"` // "memory" 或 "mysql"
	AllowLocal   bool   `yaml:"allowLocal"`   // 是否允许离线本地身份
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// StorageConfig 定义了会话、记忆与偏好的键值存储后端。
type StorageConfig struct {
	Backend string `yaml:"backend"` // "memory", "file", "redis", "mongodb"
	Dir     string `yaml:"dir"`     // file 后端的数据目录
}

// WorkspaceConfig 定义了按用户缓存工作区的策略。
type WorkspaceConfig struct {
	Capacity int    `yaml:"capacity"`
	TTL      string `yaml:"ttl"`
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	LLM        LLMConfig        `yaml:"llm"`
	Logger     LoggerConfig     `yaml:"logger"`
	Storage    StorageConfig    `yaml:"storage"`
	Workspace  WorkspaceConfig  `yaml:"workspace"`
	Databases  DatabaseConfigs  `yaml:"databases"`
	Middleware MiddlewareConfig `yaml:"middleware"`
}

// LLMConfig 包含了远程生成服务的配置。
type LLMConfig struct {
	Provider    string               `yaml:"provider"` // "genai", "gemini", "openai", "ollama", "local"
	APIKey      string               `yaml:"apiKey"`
	ChatModel   string               `yaml:"chatModel"`
	ImageModel  string               `yaml:"imageModel"`
	SpeechModel string               `yaml:"speechModel"`
	Temperature float32              `yaml:"temperature"`
	TopP        float32              `yaml:"topP"`
	ForceLocal  bool                 `yaml:"forceLocal"` // 强制进入本地回退模式
	OpenAI      OpenAIConfig         `yaml:"openai"`
	Ollama      OllamaConfig         `yaml:"ollama"`
	Local       LocalConfig          `yaml:"local"`
	Breaker     CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// OpenAIConfig 用于 OpenAI 兼容接口。APIKey 为空时使用 LLMConfig.APIKey。
type OpenAIConfig struct {
	BaseURL string `yaml:"baseURL"` // 为空时使用官方地址
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
}

// OllamaConfig 包含了 Ollama 的连接配置。
type OllamaConfig struct {
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

// LocalConfig 控制本地回退生成器逐词输出的节奏。
type LocalConfig struct {
	WordDelay string `yaml:"wordDelay"` // 例如: "40ms"
}

// placeholderKeys 是常见的占位凭据。
var placeholderKeys = []string{
	"placeholder",
	"your_api_key",
	"your-api-key",
	"your_api_key_here",
	"changeme",
	"undefined",
	"null",
}

// CredentialConfigured 判断远程凭据是否可用，空值或明显的占位值视为未配置。
func (c LLMConfig) CredentialConfigured() bool {
	key := strings.TrimSpace(c.APIKey)
	if key == "" {
		return false
	}
	lower := strings.ToLower(key)
	for _, p := range placeholderKeys {
		if lower == p {
			return false
		}
	}
	if strings.Contains(lower, "placeholder") || strings.Trim(lower, "x") == "" {
		return false
	}
	return true
}

// OpenAIKey 返回 OpenAI 提供方实际使用的凭据。
func (c LLMConfig) OpenAIKey() string {
	if c.OpenAI.APIKey != "" {
		return c.OpenAI.APIKey
	}
	return c.APIKey
}

// WordDelay 返回本地回退输出的逐词延迟。
func (c LLMConfig) WordDelay() time.Duration {
	d, err := time.ParseDuration(c.Local.WordDelay)
	if err != nil || d < 0 {
		return 40 * time.Millisecond
	}
	return d
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了限流器的配置，限流按客户端地址分别计算。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "tokenBucket", "leakyBucket"
	MaxClients  int               `yaml:"maxClients"`
	LeakyBucket LeakyBucketConfig `yaml:"leakyBucket"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// LeakyBucketConfig 定义了漏桶算法的配置。
type LeakyBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// Default 返回不依赖任何外部服务即可运行的配置。
func Default() *AppConfig {
	return &AppConfig{
		App:    AppInfo{Name: "koro", Version: "2.5.0-Platinum", Environment: "development"},
		Server: ServerConfig{Address: ":8080", ShutdownTimeout: "10s"},
		Auth: AuthConfig{
			JwtSecret:    "koro-dev-secret",
			TokenTTL:     24 * 60 * 60,
			Issuer:       "koro_service",
			AccountStore: "memory",
			AllowLocal:   true,
		},
		LLM: LLMConfig{
			Provider:    "genai",
			ChatModel:   "gemini-3-flash-preview",
			ImageModel:  "gemini-2.5-flash-image",
			SpeechModel: "gemini-2.5-flash-preview-tts",
			Temperature: 0.9,
			TopP:        0.95,
			OpenAI:      OpenAIConfig{Model: "gpt-4o-mini"},
			Local:       LocalConfig{WordDelay: "40ms"},
			Breaker:     CircuitBreakerConfig{Enabled: true, FailureThreshold: 5, SuccessThreshold: 1, Timeout: "30s"},
		},
		Logger:    LoggerConfig{Level: "info"},
		Storage:   StorageConfig{Backend: "file", Dir: "data"},
		Workspace: WorkspaceConfig{Capacity: 256, TTL: "30m"},
		Databases: DatabaseConfigs{
			MongoDB: MongoConfig{Database: "koro", Collection: "kv"},
			Kafka:   KafkaConfig{Topic: "koro_turns"},
		},
		Middleware: MiddlewareConfig{
			RateLimiter: RateLimiterConfig{
				Enabled:     true,
				Algorithm:   "tokenBucket",
				MaxClients:  10000,
				TokenBucket: TokenBucketConfig{Rate: 5, Capacity: 20},
			},
		},
	}
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
// 未在文件中出现的字段保留 Default 中的值。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	cfg := Default()
	if err = yaml.Unmarshal(yamlFile, cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	return cfg, nil
}

// ApplyEnv 加载 .env 文件（如果存在）并用环境变量覆盖配置。
func (c *AppConfig) ApplyEnv(envFiles ...string) {
	// .env 缺失不是错误。
	_ = godotenv.Load(envFiles...)

	if v := os.Getenv("API_KEY"); v != "" {
		c.LLM.APIKey = v
	} else if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAI.APIKey = v
	}
	if v := os.Getenv("KORO_FORCE_LOCAL"); strings.EqualFold(v, "true") || v == "1" {
		c.LLM.ForceLocal = true
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JwtSecret = v
	}
	if v := os.Getenv("KORO_ADDR"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
}

// ParseDurationOr 解析时长字符串，失败时返回默认值。
func ParseDurationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
