package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load 从 viper 的当前状态加载配置
// viper 由 CLI 层初始化 (配置文件 + 环境变量 + flag 绑定)，
// 这里只负责反序列化和缺省值回填
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Log == nil {
		cfg.Log = DefaultConfig().Log
	}
	if cfg.Enum == nil {
		cfg.Enum = DefaultConfig().Enum
	}

	// 非法值回填默认，保证下游不需要再做防御
	def := DefaultConfig().Enum
	if cfg.Enum.Concurrency <= 0 {
		cfg.Enum.Concurrency = def.Concurrency
	}
	if cfg.Enum.ConnectTimeout <= 0 {
		cfg.Enum.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.Enum.OpTimeout <= 0 {
		cfg.Enum.OpTimeout = def.OpTimeout
	}
	if cfg.Enum.SampleLimit <= 0 {
		cfg.Enum.SampleLimit = def.SampleLimit
	}

	return cfg, nil
}
