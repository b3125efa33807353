package config

import "time"

// AssemblyConfig 上下文组装配置
type AssemblyConfig struct {
	// TokenCeiling 总 Token 上限
	// 默认: 200000
	TokenCeiling int `koanf:"token_ceiling"`
	// OutputReserve 为模型输出预留的 Token 数
	// 默认: 20000
	OutputReserve int `koanf:"output_reserve"`
	// CacheCapacity Token 计数缓存容量
	// 默认: 1000
	CacheCapacity int `koanf:"cache_capacity"`
	// MaxExamples 单次组装最多采用的范例数
	// 默认: 5
	MaxExamples int `koanf:"max_examples"`
	// AdvancedScoring 是否启用五维相关性评分
	AdvancedScoring bool `koanf:"advanced_scoring"`
	// CollaboratorTimeout 外部协作者单次调用超时
	// 默认: 5s
	CollaboratorTimeout time.Duration `koanf:"collaborator_timeout"`
}

// Validate 验证组装配置
func (c *AssemblyConfig) Validate() error {
	if c.TokenCeiling < 1 {
		return ErrInvalidTokenCeiling
	}
	if c.OutputReserve < 0 || c.OutputReserve >= c.TokenCeiling {
		return ErrInvalidOutputReserve
	}
	if c.CacheCapacity < 1 {
		return ErrInvalidCacheCapacity
	}
	return nil
}
