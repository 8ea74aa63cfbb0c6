/*
 * @author: Sun977
 * @date: 2026.08.14
 * @description: Cobra Root Command 定义
 */

package main

import (
	"fmt"
	"os"

	"netrecon/internal/config"
	"netrecon/internal/pkg/logger"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "netrecon",
	Short: "netrecon 内网服务暴露面枚举工具",
	Long: `netrecon 针对授权范围内的目标批量探测常见服务的暴露面:
未授权访问、默认凭据、匿名登录、调试端口等。只做只读探测，不发任何利用负载。

示例:
  1.探测一批主机的 Redis 暴露面
	netrecon enum -s redis -f targets.txt
  2.指定端口和输出文件
	netrecon enum -s zookeeper -f targets.txt -p 2181,2182 -o zk.json
  3.列出支持的协议
	netrecon enum --list
`,
	// PersistentPreRun: 全局初始化逻辑，确保所有子命令都能使用日志
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initCLILogger(cmd)
	},
}

func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n[FATAL] netrecon crashed unexpectedly: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// 全局 Flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认: ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "日志级别 (debug, info, warn, error)")

	// 绑定 Viper
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	// 注册子命令
	rootCmd.AddCommand(NewEnumCmd())
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// 配置文件缺失不算错误，内置默认值足够跑
	_ = viper.ReadInConfig()
}

// initCLILogger 初始化 CLI 模式下的日志
// 受 --log-level 和配置文件 log.level 双重控制，flag 优先
func initCLILogger(cmd *cobra.Command) {
	level := viper.GetString("log.level")
	if flag := cmd.Flags().Lookup("log-level"); flag != nil && flag.Changed {
		level = flag.Value.String()
	}
	if level == "" {
		level = "warn" // 默认只给告警，进度和结果走 pterm
	}

	if level == "debug" {
		pterm.EnableDebugMessages()
	} else {
		pterm.DisableDebugMessages()
	}

	logConfig := &config.LogConfig{
		Level:  level,
		Format: "text",
		Output: "stdout",
		Caller: false,
	}
	if fileCfg := viper.Sub("log"); fileCfg != nil {
		// 配置文件指定了完整日志段时优先使用，仅级别仍受 flag 覆盖
		if cfg, err := config.Load(viper.GetViper()); err == nil && cfg.Log != nil {
			logConfig = cfg.Log
			logConfig.Level = level
		}
	}

	if _, err := logger.InitLogger(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
	}
}
