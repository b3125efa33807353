package otel

import "time"

// Config 可观测性配置。
//
// 由调用方代码直接构造（见 examples/production），每个字段都被
// Provider、导出器或日志适配器消费。
type Config struct {
	// Enabled 总开关，关闭时所有组件退化为 Noop 实现
	Enabled bool

	// ServiceName 上报到资源属性的服务名称
	ServiceName string
	// ServiceVersion 服务版本
	ServiceVersion string
	// Environment 部署环境（development, staging, production）
	Environment string

	// Tracing 追踪配置
	Tracing TracingConfig
	// Metrics 指标配置
	Metrics MetricsConfig
	// Logging 日志配置
	Logging LoggingConfig
}

// TracingConfig 追踪导出配置。
type TracingConfig struct {
	// Enabled 是否启用追踪
	Enabled bool
	// Endpoint OTLP 端点
	Endpoint string
	// Insecure 是否使用明文连接
	Insecure bool
	// SampleRate 采样率，取值 [0, 1]
	SampleRate float64
	// Timeout 单次导出超时
	Timeout time.Duration
}

// MetricsConfig 指标导出配置。
type MetricsConfig struct {
	// Enabled 是否启用指标
	Enabled bool
	// Endpoint OTLP 端点
	Endpoint string
	// Insecure 是否使用明文连接
	Insecure bool
	// Interval 周期导出间隔
	Interval time.Duration
}

// LoggingConfig 日志适配器配置。
type LoggingConfig struct {
	// Level 日志级别：debug、info、warn、error
	Level string
	// Format 输出格式：text 或 json
	Format string
	// IncludeTraceID WithContext 时是否附加 trace_id/span_id 字段
	IncludeTraceID bool
}

// DefaultConfig 返回默认配置。默认不开启任何导出。
func DefaultConfig() Config {
	return Config{
		ServiceName:    "advisorctx",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		Tracing: TracingConfig{
			Endpoint:   "localhost:4317",
			Insecure:   true,
			SampleRate: 1.0,
			Timeout:    30 * time.Second,
		},
		Metrics: MetricsConfig{
			Endpoint: "localhost:4317",
			Insecure: true,
			Interval: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			IncludeTraceID: true,
		},
	}
}

// Validate 验证配置。
func (c *Config) Validate() error {
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return ErrInvalidSampleRate
	}
	return nil
}

// WithDefaults 为空字段补上默认值。布尔开关保持调用方设置的值。
func (c Config) WithDefaults() Config {
	d := DefaultConfig()

	fillString(&c.ServiceName, d.ServiceName)
	fillString(&c.ServiceVersion, d.ServiceVersion)
	fillString(&c.Environment, d.Environment)

	fillString(&c.Tracing.Endpoint, d.Tracing.Endpoint)
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = d.Tracing.SampleRate
	}
	if c.Tracing.Timeout == 0 {
		c.Tracing.Timeout = d.Tracing.Timeout
	}

	fillString(&c.Metrics.Endpoint, d.Metrics.Endpoint)
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = d.Metrics.Interval
	}

	fillString(&c.Logging.Level, d.Logging.Level)
	fillString(&c.Logging.Format, d.Logging.Format)

	return c
}

func fillString(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}
