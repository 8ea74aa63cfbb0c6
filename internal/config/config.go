/*
 * @author: Sun977
 * @date: 2026.08.12
 * @description: 配置结构定义
 */

package config

import "time"

// Config 顶层配置
type Config struct {
	Log  *LogConfig  `yaml:"log" mapstructure:"log"`
	Enum *EnumConfig `yaml:"enum" mapstructure:"enum"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`             // 日志级别 (debug/info/warn/error)
	Format     string `yaml:"format" mapstructure:"format"`           // 日志格式 (json/text)
	Output     string `yaml:"output" mapstructure:"output"`           // 日志输出 (stdout/stderr/file)
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`     // 日志文件路径
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // 最大文件大小（MB）
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // 最大备份数
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // 最大保留天数
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // 是否压缩
	Caller     bool   `yaml:"caller" mapstructure:"caller"`           // 是否显示调用者信息
}

// EnumConfig 枚举探测配置
type EnumConfig struct {
	Concurrency    int           `yaml:"concurrency" mapstructure:"concurrency"`         // 全局并发上限
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"` // TCP 建连超时
	OpTimeout      time.Duration `yaml:"op_timeout" mapstructure:"op_timeout"`           // 单步协议操作超时
	RunTimeout     time.Duration `yaml:"run_timeout" mapstructure:"run_timeout"`         // 整体运行超时 (0 不限制)
	SampleLimit    int           `yaml:"sample_limit" mapstructure:"sample_limit"`       // introspection 采样上限

	// Credentials 默认凭据列表，覆盖内置的小字典
	Credentials []CredentialConfig `yaml:"credentials" mapstructure:"credentials"`

	// Communities SNMP community 字符串列表，覆盖内置默认值
	Communities []string `yaml:"communities" mapstructure:"communities"`
}

// CredentialConfig 一组默认凭据
type CredentialConfig struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// DefaultConfig 内置默认值
// 配置文件缺失时 CLI 也必须可用，所以默认值在代码里而不是样例文件里
func DefaultConfig() *Config {
	return &Config{
		Log: &LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Enum: &EnumConfig{
			Concurrency:    10,
			ConnectTimeout: 3 * time.Second,
			OpTimeout:      5 * time.Second,
			SampleLimit:    10,
		},
	}
}
