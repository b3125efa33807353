package store

import (
	"github.com/easyops/advisorctx-go/pkg/core/config"
	"github.com/easyops/advisorctx-go/pkg/otel"
)

// Option 存储构建选项
type Option func(*options)

type options struct {
	metrics otel.Metrics
}

// WithMetrics 启用存储指标上报
func WithMetrics(metrics otel.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// NewStore 根据配置创建存储
func NewStore(cfg *config.StoreConfig, opts ...Option) (Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var (
		inner Store
		kind  string
		err   error
	)

	if cfg == nil {
		inner, kind = NewMemoryStore(), string(config.StoreMemory)
	} else {
		switch cfg.Kind {
		case config.StoreSQLite:
			inner, err = NewSQLiteStore(cfg.SQLitePath)
			kind = string(config.StoreSQLite)
		case config.StoreMemory:
			fallthrough
		default:
			inner, kind = NewMemoryStore(), string(config.StoreMemory)
		}
	}
	if err != nil {
		return nil, err
	}

	if o.metrics != nil {
		return Instrument(inner, kind, o.metrics), nil
	}
	return inner, nil
}
