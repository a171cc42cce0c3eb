package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/posix4e/btc-mnav-rainbow/cmd"
	"github.com/posix4e/btc-mnav-rainbow/config"
	"github.com/spf13/cobra"
)

const (
	configInfo = "YAML 配置文件路径"
	dbPathInfo = "DuckDB 文件路径, 覆盖配置文件"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:           "rainbow",
		Short:         "BTC and MSTR mNAV rainbow chart data pipeline",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	var configPath, dbPath, outputDir string
	var btcCSV, capitalCSV, filingsJSON, instrumentsCSV string
	var runNow, withCSV bool

	// loadConfig 配置文件 -> 环境变量 -> 命令行参数, 后者覆盖前者
	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		if outputDir != "" {
			cfg.Output.Dir = outputDir
		}
		if btcCSV != "" {
			cfg.Inputs.BtcCSV = btcCSV
		}
		if capitalCSV != "" {
			cfg.Inputs.CapitalCSV = capitalCSV
		}
		if filingsJSON != "" {
			cfg.Inputs.FilingsJSON = filingsJSON
		}
		if instrumentsCSV != "" {
			cfg.Inputs.Instruments = instrumentsCSV
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		cmd.SetupLogger(cfg)
		return cfg, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create the database and all tables",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return cmd.Init(cfg)
		},
	}

	var refreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "Import inputs, compute mNAV, fit models and export chart data",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return cmd.Refresh(ctx, cfg)
		},
	}

	var scheduleCmd = &cobra.Command{
		Use:   "schedule",
		Short: "Run refresh on the configured cron schedule",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return cmd.Schedule(ctx, cfg, runNow)
		},
	}

	var exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export chart data using the latest stored models",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return cmd.Export(cfg, withCSV)
		},
	}

	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show table sizes and the latest models",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return cmd.Status(cfg, c.OutOrStdout())
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, configInfo)
	rootCmd.PersistentFlags().StringVar(&dbPath, "dbpath", "", dbPathInfo)
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "", "输出目录, 覆盖配置文件")

	for _, c := range []*cobra.Command{refreshCmd, scheduleCmd} {
		c.Flags().StringVar(&btcCSV, "btc", "", "BTC 日线价格 CSV")
		c.Flags().StringVar(&capitalCSV, "capital", "", "MSTR 日度资本结构 CSV")
		c.Flags().StringVar(&filingsJSON, "filings", "", "定期报告股本 JSON")
		c.Flags().StringVar(&instrumentsCSV, "instruments", "", "优先股名义金额 CSV")
	}
	scheduleCmd.Flags().BoolVar(&runNow, "now", false, "启动时立即刷新一次")
	exportCmd.Flags().BoolVar(&withCSV, "csv", false, "同时导出 MNAV 与模型历史的 CSV")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statusCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "🛑 错误: %v\n", err)
		stop()
		os.Exit(1)
	}
}
