package otel

// 预定义的指标名称
// 遵循 OpenTelemetry 语义约定
const (
	// 组装流水线指标
	MetricAssemblyRuns        = "assembly.runs"          // 计数器: 组装执行次数
	MetricAssemblyDuration    = "assembly.duration"      // 直方图: 组装耗时(ms)
	MetricAssemblyTokens      = "assembly.tokens"        // 直方图: 最终上下文 Token 数
	MetricAssemblyFallbacks   = "assembly.fallbacks"     // 计数器: 兜底路径触发次数
	MetricAssemblyCompressed  = "assembly.compressed"    // 计数器: 被压缩的元素数
	MetricAssemblyDropped     = "assembly.dropped"       // 计数器: 被丢弃的元素数

	// Token 计数器指标
	MetricTokenCacheHitRate   = "token.cache.hit_rate"   // 仪表: 缓存命中率
	MetricTokenCacheEntries   = "token.cache.entries"    // 仪表: 缓存条目数
	MetricTokenCounts         = "token.counts"           // 计数器: 计数调用次数

	// 存储指标
	MetricStoreOperations     = "store.operations"       // 计数器: 存储操作次数
	MetricStoreOperationTime  = "store.operation.time"   // 直方图: 存储操作耗时(ms)
	MetricStoreErrors         = "store.errors"           // 计数器: 存储错误次数
)

// MetricUnit 指标单位
type MetricUnit string

const (
	UnitNone         MetricUnit = ""
	UnitMilliseconds MetricUnit = "ms"
	UnitSeconds      MetricUnit = "s"
	UnitBytes        MetricUnit = "By"
	UnitCount        MetricUnit = "1"
)

// MetricDescription 指标描述
type MetricDescription struct {
	Name        string
	Description string
	Unit        MetricUnit
	Type        string // counter, histogram, gauge
}

// PredefinedMetrics 预定义指标列表
var PredefinedMetrics = []MetricDescription{
	{MetricAssemblyRuns, "Number of context assembly runs", UnitCount, "counter"},
	{MetricAssemblyDuration, "Duration of context assembly", UnitMilliseconds, "histogram"},
	{MetricAssemblyTokens, "Final context token count", UnitCount, "histogram"},
	{MetricAssemblyFallbacks, "Number of fallback results", UnitCount, "counter"},
	{MetricAssemblyCompressed, "Number of compressed elements", UnitCount, "counter"},
	{MetricAssemblyDropped, "Number of dropped elements", UnitCount, "counter"},

	{MetricTokenCacheHitRate, "Token counter cache hit rate", UnitNone, "gauge"},
	{MetricTokenCacheEntries, "Token counter cache entries", UnitCount, "gauge"},
	{MetricTokenCounts, "Number of token count calls", UnitCount, "counter"},

	{MetricStoreOperations, "Number of store operations", UnitCount, "counter"},
	{MetricStoreOperationTime, "Duration of store operations", UnitMilliseconds, "histogram"},
	{MetricStoreErrors, "Number of store errors", UnitCount, "counter"},
}
