package assembly

import "time"

// 预算与降级相关的默认常量。
const (
	// DefaultTokenCeiling 全局 Token 上限。
	DefaultTokenCeiling = 200000

	// DefaultOutputReserve 为模型输出预留的 Token。
	DefaultOutputReserve = 20000

	// DefaultTranscriptMaxChars 视频转写进入计数前的最大字符数。
	DefaultTranscriptMaxChars = 4000

	// DefaultSearchResultMaxChars 单条原始检索文本的最大字符数。
	// 超长命中在收集阶段截断，并按降级处理上报。
	DefaultSearchResultMaxChars = 20000

	// FallbackTokenSentinel 完全降级结果使用的 Token 哨兵值，
	// 调用方据此识别降级模式。
	FallbackTokenSentinel = 100
)

// Config 保存上下文装配的配置。
type Config struct {
	// TokenCeiling 全局 Token 上限。
	TokenCeiling int

	// OutputReserve 为模型输出预留的 Token 数。
	OutputReserve int

	// CacheCapacity Token 计数缓存容量。
	CacheCapacity int

	// MaxComplianceRules 合规规则的最大采用条数。
	MaxComplianceRules int

	// MaxDisclaimers 免责声明的最大采用条数。
	MaxDisclaimers int

	// MaxExamples 范例检索结果的最大采用条数。
	MaxExamples int

	// TranscriptMaxChars 视频转写的最大字符数，超出部分截断。
	TranscriptMaxChars int

	// SearchResultMaxChars 单条原始检索文本的最大字符数，超出部分截断。
	SearchResultMaxChars int

	// CollaboratorTimeout 外部协作者单次调用超时。
	CollaboratorTimeout time.Duration

	// AdvancedScoring 是否启用五维相关性评分。
	// 关闭时使用各收集器的静态默认评分。
	AdvancedScoring bool

	// Scoring 评分配置（权重、领域关键词、内容类型关键词）。
	Scoring *ScoringConfig

	// TokenCounter 使用的 Token 计数器。
	TokenCounter TokenCounter
}

// ConfigOption 配置 Config。
type ConfigOption func(*Config)

// WithTokenCeiling 设置全局 Token 上限。
func WithTokenCeiling(ceiling int) ConfigOption {
	return func(c *Config) {
		c.TokenCeiling = ceiling
	}
}

// WithOutputReserve 设置输出预留 Token 数。
func WithOutputReserve(reserve int) ConfigOption {
	return func(c *Config) {
		c.OutputReserve = reserve
	}
}

// WithCacheCapacity 设置计数缓存容量。
func WithCacheCapacity(capacity int) ConfigOption {
	return func(c *Config) {
		c.CacheCapacity = capacity
	}
}

// WithMaxExamples 设置范例最大采用条数。
func WithMaxExamples(n int) ConfigOption {
	return func(c *Config) {
		c.MaxExamples = n
	}
}

// WithMaxComplianceRules 设置合规规则与免责声明的最大采用条数。
func WithMaxComplianceRules(rules, disclaimers int) ConfigOption {
	return func(c *Config) {
		c.MaxComplianceRules = rules
		c.MaxDisclaimers = disclaimers
	}
}

// WithTranscriptMaxChars 设置转写截断长度。
func WithTranscriptMaxChars(n int) ConfigOption {
	return func(c *Config) {
		c.TranscriptMaxChars = n
	}
}

// WithSearchResultMaxChars 设置单条原始检索文本的截断长度。
func WithSearchResultMaxChars(n int) ConfigOption {
	return func(c *Config) {
		c.SearchResultMaxChars = n
	}
}

// WithCollaboratorTimeout 设置外部协作者单次调用超时。
func WithCollaboratorTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.CollaboratorTimeout = d
	}
}

// WithAdvancedScoring 开关五维相关性评分。
func WithAdvancedScoring(enabled bool) ConfigOption {
	return func(c *Config) {
		c.AdvancedScoring = enabled
	}
}

// WithScoring 设置评分配置。
func WithScoring(sc *ScoringConfig) ConfigOption {
	return func(c *Config) {
		c.Scoring = sc
	}
}

// WithCounter 设置 Token 计数器。
func WithCounter(counter TokenCounter) ConfigOption {
	return func(c *Config) {
		c.TokenCounter = counter
	}
}

// DefaultConfig 返回具有参考默认值的 Config。
func DefaultConfig() *Config {
	return &Config{
		TokenCeiling:         DefaultTokenCeiling,
		OutputReserve:        DefaultOutputReserve,
		CacheCapacity:        DefaultCacheCapacity,
		MaxComplianceRules:   5,
		MaxDisclaimers:       3,
		MaxExamples:          5,
		TranscriptMaxChars:   DefaultTranscriptMaxChars,
		SearchResultMaxChars: DefaultSearchResultMaxChars,
		CollaboratorTimeout:  DefaultCollaboratorTimeout,
		AdvancedScoring:      true,
		Scoring:              DefaultScoringConfig(),
		TokenCounter:         nil, // 需要时使用 DefaultTokenCounter()
	}
}

// NewConfig 使用给定选项创建新的 Config。
func NewConfig(opts ...ConfigOption) *Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TargetInputTokens 返回目标输入上限（全局上限减去输出预留）。
func (c *Config) TargetInputTokens() int {
	return c.TokenCeiling - c.OutputReserve
}

// Counter 返回配置的 Token 计数器。
// 显式计数器优先；自定义缓存容量时构建独立的缓存计数器，
// 否则复用进程默认计数器。
func (c *Config) Counter() TokenCounter {
	if c.TokenCounter != nil {
		return c.TokenCounter
	}
	if c.CacheCapacity > 0 && c.CacheCapacity != DefaultCacheCapacity {
		return NewCachingCounter(newBaseCounter(), c.CacheCapacity)
	}
	return DefaultTokenCounter()
}
