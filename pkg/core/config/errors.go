package config

import (
	"fmt"

	coreerrors "github.com/easyops/advisorctx-go/pkg/core/errors"
)

// 配置验证相关错误，均归类为不可恢复的配置错误。
var (
	// ErrInvalidTokenCeiling Token 上限无效
	ErrInvalidTokenCeiling = fmt.Errorf("%w: token ceiling must be positive", coreerrors.ErrInvalidConfig)
	// ErrInvalidOutputReserve 输出预留无效
	ErrInvalidOutputReserve = fmt.Errorf("%w: output reserve must be non-negative and below the ceiling", coreerrors.ErrInvalidConfig)
	// ErrInvalidCacheCapacity 缓存容量无效
	ErrInvalidCacheCapacity = fmt.Errorf("%w: cache capacity must be positive", coreerrors.ErrInvalidConfig)
	// ErrInvalidStoreKind 存储类型无效
	ErrInvalidStoreKind = fmt.Errorf("%w: invalid store kind", coreerrors.ErrInvalidConfig)
	// ErrSQLitePathRequired SQLite 路径必填
	ErrSQLitePathRequired = fmt.Errorf("%w: sqlite path is required", coreerrors.ErrInvalidConfig)
)
