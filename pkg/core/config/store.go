package config

// StoreKind 存储后端类型
type StoreKind string

const (
	// StoreMemory 内存存储
	StoreMemory StoreKind = "memory"
	// StoreSQLite SQLite 存储
	StoreSQLite StoreKind = "sqlite"
)

// IsValid 检查存储类型是否有效
func (k StoreKind) IsValid() bool {
	switch k {
	case StoreMemory, StoreSQLite:
		return true
	default:
		return false
	}
}

// StoreConfig 存储配置
type StoreConfig struct {
	// Kind 后端类型
	Kind StoreKind `koanf:"kind"`
	// SQLitePath SQLite 数据库文件路径
	SQLitePath string `koanf:"sqlite_path"`
}

// Validate 验证存储配置
func (c *StoreConfig) Validate() error {
	if !c.Kind.IsValid() {
		return ErrInvalidStoreKind
	}
	if c.Kind == StoreSQLite && c.SQLitePath == "" {
		return ErrSQLitePathRequired
	}
	return nil
}
