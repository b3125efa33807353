// Package config 提供配置加载和管理功能
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "ADVISORCTX_"

// Config 全局配置结构
type Config struct {
	// Assembly 上下文组装配置
	Assembly AssemblyConfig `koanf:"assembly"`
	// Store 存储配置
	Store StoreConfig `koanf:"store"`
	// Observability 可观测性配置
	Observability ObservabilityConfig `koanf:"observability"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	// Enabled 是否启用
	Enabled bool `koanf:"enabled"`
	// ServiceName 服务名称
	ServiceName string `koanf:"service_name"`
	// TracerEndpoint 追踪端点
	TracerEndpoint string `koanf:"tracer_endpoint"`
	// MetricsEndpoint 指标端点
	MetricsEndpoint string `koanf:"metrics_endpoint"`
	// SampleRate 采样率 [0, 1]
	SampleRate float64 `koanf:"sample_rate"`
}

// Loader 配置加载器
type Loader struct {
	k *koanf.Koanf
}

// NewLoader 创建配置加载器
func NewLoader() *Loader {
	return &Loader{
		k: koanf.New("."),
	}
}

// LoadFile 从文件加载配置
func (l *Loader) LoadFile(path string) error {
	// 检查文件是否存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // 文件不存在不报错，使用默认值
	}

	// 根据文件扩展名选择解析器
	switch {
	case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
		// YAML 解析器暂未实现
		return nil
	case strings.HasSuffix(path, ".json"):
		// JSON 解析器暂未实现
		return nil
	default:
		return nil
	}
}

// LoadEnv 从环境变量加载配置
func (l *Loader) LoadEnv(prefix string) error {
	return l.k.Load(env.Provider(prefix, ".", func(s string) string {
		// 转换环境变量名: ADVISORCTX_ASSEMBLY_TOKEN_CEILING -> assembly.token_ceiling
		s = strings.TrimPrefix(s, prefix)
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, "_", ".")
		return s
	}), nil)
}

// Unmarshal 解析配置到结构体
func (l *Loader) Unmarshal(cfg *Config) error {
	return l.k.Unmarshal("", cfg)
}

// Get 获取配置值
func (l *Loader) Get(key string) interface{} {
	return l.k.Get(key)
}

// GetString 获取字符串配置值
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// GetInt 获取整数配置值
func (l *Loader) GetInt(key string) int {
	return l.k.Int(key)
}

// GetBool 获取布尔配置值
func (l *Loader) GetBool(key string) bool {
	return l.k.Bool(key)
}

// GetDuration 获取时间间隔配置值
func (l *Loader) GetDuration(key string) time.Duration {
	return l.k.Duration(key)
}

// Load 加载完整配置（文件 + 环境变量）
func Load(configPath string) (*Config, error) {
	loader := NewLoader()

	// 加载配置文件
	if configPath != "" {
		if err := loader.LoadFile(configPath); err != nil {
			return nil, err
		}
	}

	// 加载环境变量（优先级更高）
	if err := loader.LoadEnv(EnvPrefix); err != nil {
		return nil, err
	}

	// 解析到结构体
	cfg := &Config{}
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// 应用默认值
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults 应用默认配置值
func applyDefaults(cfg *Config) {
	// Assembly 默认值
	if cfg.Assembly.TokenCeiling == 0 {
		cfg.Assembly.TokenCeiling = 200000
	}
	if cfg.Assembly.OutputReserve == 0 {
		cfg.Assembly.OutputReserve = 20000
	}
	if cfg.Assembly.CacheCapacity == 0 {
		cfg.Assembly.CacheCapacity = 1000
	}
	if cfg.Assembly.MaxExamples == 0 {
		cfg.Assembly.MaxExamples = 5
	}
	if cfg.Assembly.CollaboratorTimeout == 0 {
		cfg.Assembly.CollaboratorTimeout = 5 * time.Second
	}

	// Store 默认值
	if cfg.Store.Kind == "" {
		cfg.Store.Kind = StoreMemory
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "advisorctx.db"
	}

	// Observability 默认值
	if cfg.Observability.SampleRate == 0 {
		cfg.Observability.SampleRate = 1.0
	}
}
