package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/easyops/advisorctx-go/pkg/core/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Assembly.TokenCeiling != 200000 {
		t.Errorf("TokenCeiling = %d, want 200000", cfg.Assembly.TokenCeiling)
	}
	if cfg.Assembly.OutputReserve != 20000 {
		t.Errorf("OutputReserve = %d, want 20000", cfg.Assembly.OutputReserve)
	}
	if cfg.Assembly.CacheCapacity != 1000 {
		t.Errorf("CacheCapacity = %d, want 1000", cfg.Assembly.CacheCapacity)
	}
	if cfg.Assembly.CollaboratorTimeout != 5*time.Second {
		t.Errorf("CollaboratorTimeout = %v, want 5s", cfg.Assembly.CollaboratorTimeout)
	}
	if cfg.Store.Kind != config.StoreMemory {
		t.Errorf("Store.Kind = %q, want memory", cfg.Store.Kind)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ADVISORCTX_ASSEMBLY_MAX_EXAMPLES", "3")
	t.Setenv("ADVISORCTX_STORE_KIND", "sqlite")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Assembly.MaxExamples != 3 {
		t.Errorf("MaxExamples = %d, want 3 from env", cfg.Assembly.MaxExamples)
	}
	if cfg.Store.Kind != config.StoreSQLite {
		t.Errorf("Store.Kind = %q, want sqlite from env", cfg.Store.Kind)
	}
}

func TestAssemblyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.AssemblyConfig
		wantErr error
	}{
		{
			name: "valid",
			cfg:  config.AssemblyConfig{TokenCeiling: 200000, OutputReserve: 20000, CacheCapacity: 1000},
		},
		{
			name:    "zero ceiling",
			cfg:     config.AssemblyConfig{OutputReserve: 100, CacheCapacity: 10},
			wantErr: config.ErrInvalidTokenCeiling,
		},
		{
			name:    "reserve exceeds ceiling",
			cfg:     config.AssemblyConfig{TokenCeiling: 1000, OutputReserve: 1000, CacheCapacity: 10},
			wantErr: config.ErrInvalidOutputReserve,
		},
		{
			name:    "zero cache capacity",
			cfg:     config.AssemblyConfig{TokenCeiling: 1000, OutputReserve: 100},
			wantErr: config.ErrInvalidCacheCapacity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStoreConfig_Validate(t *testing.T) {
	cfg := config.StoreConfig{Kind: "postgres"}
	if !errors.Is(cfg.Validate(), config.ErrInvalidStoreKind) {
		t.Error("unknown store kind should fail validation")
	}

	cfg = config.StoreConfig{Kind: config.StoreSQLite, SQLitePath: ""}
	if !errors.Is(cfg.Validate(), config.ErrSQLitePathRequired) {
		t.Error("sqlite without path should fail validation")
	}

	cfg = config.StoreConfig{Kind: config.StoreMemory}
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory store should validate, got %v", err)
	}
}
