/*
 * @author: Sun977
 * @date: 2026.08.14
 * @description: enum 子命令，批量服务暴露面探测入口
 */

package main

import (
	"context"
	"fmt"
	"time"

	"netrecon/internal/config"
	"netrecon/internal/core/aggregate"
	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
	"netrecon/internal/core/probe/protocol"
	"netrecon/internal/core/reporter"
	"netrecon/internal/core/scheduler"
	"netrecon/internal/core/target"
	"netrecon/internal/pkg/logger"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// 全部内置协议只装配一次
	protocol.RegisterAll()
}

// NewEnumCmd 创建 enum 子命令
func NewEnumCmd() *cobra.Command {
	var (
		service     string
		targetFile  string
		portSpec    string
		output      string
		concurrency int
		opTimeout   int
		runTimeout  int
		listChecks  bool
	)

	cmd := &cobra.Command{
		Use:   "enum",
		Short: "批量探测指定服务的暴露面",
		Long: `读取目标文件，对每个 目标x端口 组合执行协议探测，
输出未授权访问/默认凭据/匿名登录等暴露信息的汇总报告。
端口缺省时使用协议的知名端口。全程只读，不发送任何利用负载。`,
		Example: `  # Redis 暴露面 (默认端口 6379)
  netrecon enum -s redis -f targets.txt

  # ZooKeeper，自定义端口与输出
  netrecon enum -s zookeeper -f targets.txt -p 2181,2182 -o zk.json

  # 限制并发和整体运行时间
  netrecon enum -s mysql -f targets.txt -c 50 --run-timeout 600

  # 列出支持的协议
  netrecon enum --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listChecks {
				pterm.DefaultSection.Println("Supported services")
				for _, name := range probe.Names() {
					pterm.Println("  " + name)
				}
				return nil
			}

			// 1. 参数校验
			if service == "" {
				return fmt.Errorf("service is required (-s)")
			}
			if targetFile == "" {
				return fmt.Errorf("target file is required (-f)")
			}

			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			// 2. 装配探测器
			opts := buildOptions(cfg.Enum)
			check, err := probe.New(service, opts)
			if err != nil {
				return fmt.Errorf("%w (use --list to see supported services)", err)
			}

			// 3. 目标与端口，任何网络活动之前全部完成校验
			targets, err := target.LoadFile(targetFile)
			if err != nil {
				return err
			}
			ports := check.DefaultPorts()
			if portSpec != "" {
				if ports, err = target.ParsePorts(portSpec); err != nil {
					return err
				}
			}

			// 4. 调度配置，flag 覆盖配置文件
			schedCfg := scheduler.Config{
				Concurrency: cfg.Enum.Concurrency,
				Timeouts: probe.TimeoutConfig{
					Connect: cfg.Enum.ConnectTimeout,
					Op:      cfg.Enum.OpTimeout,
				},
				RunTimeout: cfg.Enum.RunTimeout,
			}
			if concurrency > 0 {
				schedCfg.Concurrency = concurrency
			}
			if opTimeout > 0 {
				schedCfg.Timeouts.Op = time.Duration(opTimeout) * time.Second
			}
			if runTimeout > 0 {
				schedCfg.RunTimeout = time.Duration(runTimeout) * time.Second
			}

			items := scheduler.BuildWorkItems(targets, ports)
			pterm.Info.Printf("Probing %d targets x %d ports (%s, concurrency=%d)\n",
				len(targets), len(ports), service, schedCfg.Concurrency)
			logger.Infof("enum: service=%s targets=%d ports=%v concurrency=%d",
				service, len(targets), ports, schedCfg.Concurrency)

			// 5. 执行 + 聚合 + 输出
			results := scheduler.Run(cmd.Context(), items, check, schedCfg)
			report := aggregate.Aggregate(service, ports, results, predicatesFor(service))

			path := output
			if path == "" {
				path = reporter.DefaultPath(service)
			}
			out := reporter.NewMultiReporter(
				reporter.NewConsoleReporter(),
				reporter.NewFileReporter(path),
			)
			return out.Report(context.Background(), report)
		},
	}

	cmd.Flags().StringVarP(&service, "service", "s", "", "协议名 (--list 查看支持列表)")
	cmd.Flags().StringVarP(&targetFile, "file", "f", "", "目标文件，每行一个主机，# 开头为注释")
	cmd.Flags().StringVarP(&portSpec, "ports", "p", "", "逗号分隔端口列表 (默认: 协议知名端口)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "结果文件路径 (.json/.yaml，默认: <service>_enum_results.json)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "全局并发上限 (默认: 配置文件或 10)")
	cmd.Flags().IntVarP(&opTimeout, "timeout", "T", 0, "单步协议操作超时秒数 (默认: 5)")
	cmd.Flags().IntVar(&runTimeout, "run-timeout", 0, "整体运行超时秒数，0 不限制")
	cmd.Flags().BoolVar(&listChecks, "list", false, "列出支持的协议后退出")

	return cmd
}

// buildOptions 把配置文件凭据合入探测选项
func buildOptions(cfg *config.EnumConfig) probe.Options {
	opts := probe.DefaultOptions()
	if cfg.SampleLimit > 0 {
		opts.SampleLimit = cfg.SampleLimit
	}
	if len(cfg.Credentials) > 0 {
		creds := make([]probe.Credential, 0, len(cfg.Credentials))
		for _, c := range cfg.Credentials {
			creds = append(creds, probe.Credential{Username: c.Username, Password: c.Password})
		}
		opts.Credentials = creds
	}
	if len(cfg.Communities) > 0 {
		opts.Communities = cfg.Communities
	}
	return opts
}

// fieldPresent 字段非空即计数的暴露谓词
func fieldPresent(name, field string) aggregate.Predicate {
	return aggregate.Predicate{
		Name: name,
		Match: func(r *model.CheckResult) bool {
			return r.Field(field) != nil
		},
	}
}

// predicatesFor 各协议的暴露计数谓词
// 协议语义留在 Check 写入的字段里，这里只声明哪些字段算暴露
func predicatesFor(service string) []aggregate.Predicate {
	switch service {
	case "redis":
		return []aggregate.Predicate{
			aggregate.FieldTrue("unauthenticated_access", "unauthenticated_access"),
			fieldPresent("default_credential", "default_password"),
		}
	case "ftp":
		return []aggregate.Predicate{
			aggregate.FieldTrue("anonymous_login", "anonymous_login"),
			fieldPresent("default_credential", "default_credential"),
		}
	case "mysql", "postgres", "mssql":
		return []aggregate.Predicate{
			fieldPresent("default_credential", "default_credential"),
		}
	case "mongo", "clickhouse", "elasticsearch":
		return []aggregate.Predicate{
			aggregate.FieldTrue("unauthenticated_access", "unauthenticated_access"),
			fieldPresent("default_credential", "default_credential"),
		}
	case "smb":
		return []aggregate.Predicate{
			aggregate.FieldTrue("null_session", "null_session"),
			fieldPresent("default_credential", "default_credential"),
		}
	case "mqtt":
		return []aggregate.Predicate{
			aggregate.FieldTrue("anonymous_access", "anonymous_access"),
		}
	case "vnc":
		return []aggregate.Predicate{
			aggregate.FieldTrue("no_auth_supported", "no_auth_supported"),
		}
	case "jdwp":
		return []aggregate.Predicate{
			aggregate.FieldTrue("debugger_exposed", "debugger_exposed"),
		}
	case "docker":
		return []aggregate.Predicate{
			aggregate.FieldTrue("unauthenticated_access", "unauthenticated_access"),
		}
	case "snmp":
		return []aggregate.Predicate{
			fieldPresent("default_community", "community"),
		}
	case "smtp":
		return []aggregate.Predicate{
			aggregate.FieldTrue("vrfy_enabled", "vrfy_enabled"),
			aggregate.FieldTrue("expn_enabled", "expn_enabled"),
		}
	case "nats":
		return []aggregate.Predicate{
			{
				Name: "no_auth_required",
				Match: func(r *model.CheckResult) bool {
					v, ok := r.Field("auth_required").(bool)
					return r.Detected && ok && !v
				},
			},
		}
	case "weblogic":
		return []aggregate.Predicate{
			aggregate.FieldTrue("admin_console_exposed", "admin_console_exposed"),
			aggregate.FieldTrue("potentially_vulnerable", "potentially_vulnerable"),
		}
	default:
		return nil
	}
}
